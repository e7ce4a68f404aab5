package fabric

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type tomlFabric struct {
	FPGAs       map[string]string `toml:"fpgas"`
	Connections map[string]string `toml:"connections"`
}

// LoadTOML reads a TOML fabric file
func LoadTOML(path string) (*Fabric, error) {
	var raw tomlFabric
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode fabric file %s: %w", path, err)
	}
	f, err := raw.assemble()
	if err != nil {
		return nil, fmt.Errorf("fabric file %s: %w", path, err)
	}
	return f, nil
}

// DecodeTOML reads a TOML fabric from a string
func DecodeTOML(data string) (*Fabric, error) {
	var raw tomlFabric
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode fabric: %w", err)
	}
	return raw.assemble()
}

func (raw *tomlFabric) assemble() (*Fabric, error) {
	a := newAssembler()
	for _, key := range sortedKeys(raw.FPGAs) {
		device, err := ParseDeviceKey(key)
		if err != nil {
			return nil, err
		}
		if err := a.assign(device, raw.FPGAs[key]); err != nil {
			return nil, err
		}
	}
	for _, key := range sortedKeys(raw.Connections) {
		from, err := ParseEndpoint(key)
		if err != nil {
			return nil, err
		}
		to, err := ParseEndpoint(raw.Connections[key])
		if err != nil {
			return nil, err
		}
		a.wire(from, to)
	}
	return a.fabric(), nil
}
