package director

import (
	"os"

	"gopkg.in/yaml.v3"
)

// WritePath writes a camera path to a YAML file
func WritePath(path *CameraPath, file string) error {
	if path.Version == "" {
		path.Version = PathVersion
	}
	data, err := yaml.Marshal(path)
	if err != nil {
		return err
	}

	return os.WriteFile(file, data, 0644)
}

// ReadPath reads a camera path from a YAML file
func ReadPath(file string) (*CameraPath, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var path CameraPath
	if err := yaml.Unmarshal(data, &path); err != nil {
		return nil, err
	}

	return &path, nil
}
