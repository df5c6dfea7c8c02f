package loaders

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

var ErrInvalidSPIRV = errors.New("invalid SPIR-V")

type ShaderLoader struct{}

// Load reads a compiled SPIR-V module from disk.
func (sl *ShaderLoader) Load(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	code, err := DecodeSPIRV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return code, nil
}

// DecodeSPIRV turns the little endian bytes of a module into words.
func DecodeSPIRV(data []byte) ([]uint32, error) {
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: size %d is not a positive multiple of 4", ErrInvalidSPIRV, len(data))
	}
	code := make([]uint32, len(data)/4)
	if _, err := binary.Decode(data, binary.LittleEndian, code); err != nil {
		return nil, err
	}
	if code[0] != SPIRVMagic {
		return nil, fmt.Errorf("%w: bad magic %#08x", ErrInvalidSPIRV, code[0])
	}
	return code, nil
}
