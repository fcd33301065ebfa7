// Package tools provides host helpers shared by the provisioner, resolver and refiner.
//
// Ownership boundary:
// - external command execution
//
// - command search path lookup
//
// - host core count
package tools
