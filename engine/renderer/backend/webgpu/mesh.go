package webgpu

import (
	"errors"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// Mesh holds the GPU vertex and index buffers of one interleaved geometry.
type Mesh struct {
	name         string
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   uint32
}

// sliceBytes reinterprets a slice as its raw bytes without copying.
func sliceBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(unsafe.Sizeof(zero))*len(data))
}

// NewMesh uploads interleaved vertices matching the layout reflected from the vertex inputs,
// and 32-bit indices.
//
// Parameters:
//   - d: the device
//   - name: the buffer label prefix
//   - vertices: interleaved vertex components
//   - indices: triangle list indices
//
// Returns:
//   - *Mesh: the mesh
//   - error: an error if either buffer is empty or could not be created
func NewMesh(d Device, name string, vertices []float32, indices []uint32) (*Mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, errors.New("mesh needs vertices and indices")
	}
	m := &Mesh{name: name, indexCount: uint32(len(indices))}

	var err error
	m.vertexBuffer, err = uploadBuffer(d, name+" Vertex Buffer", sliceBytes(vertices), wgpu.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	m.indexBuffer, err = uploadBuffer(d, name+" Index Buffer", sliceBytes(indices), wgpu.BufferUsageIndex)
	if err != nil {
		m.vertexBuffer.Release()
		return nil, err
	}
	return m, nil
}

func uploadBuffer(d Device, label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := d.GPU().CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	d.Queue().WriteBuffer(buf, 0, data)
	return buf, nil
}

func (m *Mesh) Name() string       { return m.name }
func (m *Mesh) IndexCount() uint32 { return m.indexCount }

// Release frees both buffers.
func (m *Mesh) Release() {
	m.vertexBuffer.Release()
	m.indexBuffer.Release()
}
