package config

import (
	"fmt"
	"os"
)

func Template() string {
	return fileTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(fileTemplate), 0o644)
}

const fileTemplate = `# mmgctl provisioning config
upstream = "https://github.com/MmgTools/mmg.git"
# branch = "develop"
# ref = "v5.8.0"

# 0 uses every available core
jobs = 0
# cmake and make are always required; list any other tools the build needs
# extra_prerequisites = ["ninja"]
stream_build_output = true
`
