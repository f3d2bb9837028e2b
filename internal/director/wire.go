package director

import (
	"encoding/json"
	"fmt"
)

// EncodeWire serializes a path into the response body of the path-generation endpoint.
func EncodeWire(path *CameraPath) ([]byte, error) {
	if path == nil {
		return nil, fmt.Errorf("nil path")
	}
	return json.Marshal(path)
}

// DecodeWire parses the path-generation response body.
func DecodeWire(data []byte) (*CameraPath, error) {
	var path CameraPath
	if err := json.Unmarshal(data, &path); err != nil {
		return nil, fmt.Errorf("decode camera path: %w", err)
	}
	path.Version = PathVersion
	return &path, nil
}
