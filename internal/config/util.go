package config

import (
	"fmt"
	"os"
)

func checkDirExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("does not exist")
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}
	return nil
}
