package imaging

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// MRC2014 header constants. The header is 256 four-byte words; an optional
// extended header of nsymbt bytes sits between it and the voxel data.
const (
	mrcHeaderSize = 1024

	mrcModeInt8    = 0
	mrcModeInt16   = 1
	mrcModeFloat32 = 2
	mrcModeUint16  = 6
)

// ReadMRC reads the first section of an MRC file as a [y][x] float64 grid.
// Multi-section stacks are valid input; only section zero is returned since
// a motion-corrected micrograph is a single frame.
func ReadMRC(path string) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header := make([]byte, mrcHeaderSize)
	if _, err := io.ReadFull(file, header); err != nil {
		return nil, fmt.Errorf("failed to read MRC header of %s: %v", path, err)
	}

	// Machine stamp (word 54) decides endianness: 0x44 little, 0x11 big.
	var order binary.ByteOrder = binary.LittleEndian
	if header[212] == 0x11 {
		order = binary.BigEndian
	}

	nx := int(int32(order.Uint32(header[0:4])))
	ny := int(int32(order.Uint32(header[4:8])))
	nz := int(int32(order.Uint32(header[8:12])))
	mode := int(int32(order.Uint32(header[12:16])))
	nsymbt := int(int32(order.Uint32(header[92:96])))

	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("invalid MRC dimensions %dx%dx%d in %s", nx, ny, nz, path)
	}
	if nsymbt < 0 {
		return nil, fmt.Errorf("invalid MRC extended header size %d in %s", nsymbt, path)
	}
	if nsymbt > 0 {
		if _, err := file.Seek(int64(nsymbt), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("failed to skip MRC extended header of %s: %v", path, err)
		}
	}

	r := bufio.NewReaderSize(file, 1<<16)
	grid := make([][]float64, ny)
	for y := range grid {
		grid[y] = make([]float64, nx)
	}

	buf := make([]byte, 4)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			v, err := readMRCValue(r, order, mode, buf)
			if err != nil {
				return nil, fmt.Errorf("truncated MRC data in %s at (%d,%d): %v", path, x, y, err)
			}
			grid[y][x] = v
		}
	}
	return grid, nil
}

func readMRCValue(r io.Reader, order binary.ByteOrder, mode int, buf []byte) (float64, error) {
	switch mode {
	case mrcModeInt8:
		if _, err := io.ReadFull(r, buf[:1]); err != nil {
			return 0, err
		}
		return float64(int8(buf[0])), nil
	case mrcModeInt16:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, err
		}
		return float64(int16(order.Uint16(buf[:2]))), nil
	case mrcModeFloat32:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(order.Uint32(buf[:4]))), nil
	case mrcModeUint16:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return 0, err
		}
		return float64(order.Uint16(buf[:2])), nil
	default:
		return 0, fmt.Errorf("unsupported MRC mode %d", mode)
	}
}

// WriteMRC writes a single-section mode 2 (float32) little-endian MRC file.
func WriteMRC(path string, grid [][]float64) error {
	ny := len(grid)
	if ny == 0 {
		return fmt.Errorf("cannot write empty MRC image")
	}
	nx := len(grid[0])

	header := make([]byte, mrcHeaderSize)
	le := binary.LittleEndian
	le.PutUint32(header[0:4], uint32(int32(nx)))
	le.PutUint32(header[4:8], uint32(int32(ny)))
	le.PutUint32(header[8:12], uint32(int32(1)))
	le.PutUint32(header[12:16], uint32(int32(mrcModeFloat32)))
	// MX/MY/MZ mirror the grid size.
	le.PutUint32(header[28:32], uint32(int32(nx)))
	le.PutUint32(header[32:36], uint32(int32(ny)))
	le.PutUint32(header[36:40], uint32(int32(1)))
	copy(header[208:212], []byte("MAP "))
	header[212] = 0x44
	header[213] = 0x44

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriterSize(file, 1<<16)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write MRC header: %v", err)
	}
	buf := make([]byte, 4)
	for y := 0; y < ny; y++ {
		if len(grid[y]) != nx {
			return fmt.Errorf("ragged MRC image: row %d has %d values, expected %d", y, len(grid[y]), nx)
		}
		for x := 0; x < nx; x++ {
			le.PutUint32(buf, math.Float32bits(float32(grid[y][x])))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("failed to write MRC data: %v", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %v", path, err)
	}
	return nil
}
