package loaders

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSPIRV(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(nil, SPIRVMagic)
	data = binary.LittleEndian.AppendUint32(data, 0x00010000)

	code, err := DecodeSPIRV(data)
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRVMagic, 0x00010000}, code)

	_, err = DecodeSPIRV(data[:6])
	assert.ErrorIs(t, err, ErrInvalidSPIRV)
	_, err = DecodeSPIRV(nil)
	assert.ErrorIs(t, err, ErrInvalidSPIRV)
	_, err = DecodeSPIRV([]byte{0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidSPIRV)
}

func TestShaderLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.vert.spv")
	require.NoError(t, os.WriteFile(path, binary.LittleEndian.AppendUint32(nil, SPIRVMagic), 0o644))

	code, err := (&ShaderLoader{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRVMagic}, code)

	_, err = (&ShaderLoader{}).Load(filepath.Join(t.TempDir(), "missing.spv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
