package codesign

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/blacktop/go-macho"
)

const (
	fatMagic        = 0xcafebabe
	lcCodeSignature = 0x1d
)

// BinaryInfo summarizes a Mach-O executable
type BinaryInfo struct {
	Path          string
	Architectures []string
	Signed        bool // every slice carries an LC_CODE_SIGNATURE
}

// InspectBinary reports the architectures of a thin or fat Mach-O file and
// whether it is code signed
func InspectBinary(path string) (*BinaryInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read binary: %w", err)
	}

	info := &BinaryInfo{Path: path}

	if len(data) >= 4 && binary.BigEndian.Uint32(data[:4]) == fatMagic {
		fat, err := macho.NewFatFile(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse fat binary: %w", err)
		}
		defer fat.Close()

		info.Signed = len(fat.Arches) > 0
		for _, arch := range fat.Arches {
			info.Architectures = append(info.Architectures, arch.CPU.String())
			end := uint64(arch.Offset) + uint64(arch.Size)
			if end > uint64(len(data)) {
				return nil, fmt.Errorf("architecture %s extends beyond file", arch.CPU)
			}
			if _, _, found := findCodeSignatureOffset(data[arch.Offset:end]); !found {
				info.Signed = false
			}
		}
		return info, nil
	}

	// Zero out existing signature data before parsing - go-macho chokes on some signature formats
	parseData := data
	sigOffset, sigSize, signed := findCodeSignatureOffset(data)
	if signed && sigOffset < uint32(len(data)) {
		parseData = make([]byte, len(data))
		copy(parseData, data)
		end := uint64(sigOffset) + uint64(sigSize)
		if end > uint64(len(data)) {
			end = uint64(len(data))
		}
		for i := uint64(sigOffset); i < end; i++ {
			parseData[i] = 0
		}
	}

	m, err := macho.NewFile(bytes.NewReader(parseData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Mach-O: %w", err)
	}
	defer m.Close()

	info.Architectures = []string{m.CPU.String()}
	info.Signed = signed
	return info, nil
}

// findCodeSignatureOffset finds the LC_CODE_SIGNATURE offset and size without full parsing
func findCodeSignatureOffset(data []byte) (offset, size uint32, found bool) {
	if len(data) < 32 {
		return 0, 0, false
	}

	magic := binary.LittleEndian.Uint32(data[:4])
	var headerSize uint32
	var ncmds, sizeofcmds uint32

	switch magic {
	case 0xfeedfacf: // MH_MAGIC_64
		headerSize = 32
	case 0xfeedface: // MH_MAGIC
		headerSize = 28
	default:
		return 0, 0, false
	}
	ncmds = binary.LittleEndian.Uint32(data[16:20])
	sizeofcmds = binary.LittleEndian.Uint32(data[20:24])

	if uint64(len(data)) < uint64(headerSize)+uint64(sizeofcmds) {
		return 0, 0, false
	}

	// Offsets are 64-bit so a hostile cmdsize cannot wrap past the bounds checks
	end := uint64(headerSize) + uint64(sizeofcmds)
	cmdOffset := uint64(headerSize)
	for i := uint32(0); i < ncmds; i++ {
		if cmdOffset+8 > end {
			break
		}
		cmd := binary.LittleEndian.Uint32(data[cmdOffset:])
		cmdSize := uint64(binary.LittleEndian.Uint32(data[cmdOffset+4:]))
		if cmdSize < 8 || cmdSize > end-cmdOffset {
			break
		}

		if cmd == lcCodeSignature && cmdSize >= 16 {
			return binary.LittleEndian.Uint32(data[cmdOffset+8:]), binary.LittleEndian.Uint32(data[cmdOffset+12:]), true
		}
		cmdOffset += cmdSize
	}

	return 0, 0, false
}
