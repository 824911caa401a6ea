package commands

import (
	"fmt"
	"os"
	"path/filepath"
)

var projectDirs = []string{
	"routes",
	"schemas",
	"handlers",
	"services",
	"config",
}

func initProject(basePath string) error {
	for _, dir := range projectDirs {
		path := filepath.Join(basePath, dir)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
		fmt.Printf("✅ Created folder: %s\n", dir)
	}

	if err := generateFile(filepath.Join(basePath, "routes", "hello.yaml"), helloRouteTemplate, nil); err != nil {
		return err
	}
	if err := generateFile(filepath.Join(basePath, "config", "config.yaml"), configTemplate, nil); err != nil {
		return err
	}

	fmt.Println("\n🚀 routekit project initialized!")
	fmt.Println("\nNext steps:")
	fmt.Println("1. cd " + basePath)
	fmt.Println("2. routekit serve --watch")
	fmt.Println("3. curl http://localhost:8080/api/v1/hello")

	return nil
}
