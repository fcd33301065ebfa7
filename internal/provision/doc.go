// Package provision builds the vendored mmgs binary from source.
//
// Ownership boundary:
// - prerequisite checks for the build toolchain
// - upstream checkout (clone or fast-forward update)
// - release build and artifact verification
// - the informational build receipt
//
// The provisioner never reads the resolver's environment override. It shares
// only the vendor layout with the resolver.
package provision
