package scene

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4

	// multiview holds the right eye view and projection when multiview rendering is active.
	multiview       bool
	viewR           mgl32.Mat4
	projectionR     mgl32.Mat4
	viewProjectionR mgl32.Mat4
}

// Camera holds perspective settings and the view/projection matrices derived from its position
// and target. The matrices are recomputed on every setter.
type Camera interface {
	// Position returns the eye position.
	Position() mgl32.Vec3

	// Target returns the point the camera looks at.
	Target() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32

	Aspect() float32
	Near() float32
	Far() float32

	// View returns the view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	View() mgl32.Mat4

	// Projection returns the projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	Projection() mgl32.Mat4

	// ViewProjection returns Projection * View.
	ViewProjection() mgl32.Mat4

	// Multiview reports whether the camera renders a second view in the same pass.
	Multiview() bool

	// ViewProjectionR returns the view projection of the second view, identity without multiview.
	ViewProjectionR() mgl32.Mat4

	// LogarithmicDepthConstant returns 2 / log2(far + 1), the scale used by logarithmic depth.
	LogarithmicDepthConstant() float32

	SetPosition(p mgl32.Vec3)
	SetTarget(t mgl32.Vec3)
	SetFov(fov float32)
	SetAspect(aspect float32)
	SetNear(near float32)
	SetFar(far float32)

	// SetMultiview sets the second view of a multiview camera.
	//
	// Parameters:
	//   - view: the view matrix of the second eye
	//   - projection: the projection matrix of the second eye
	SetMultiview(view, projection mgl32.Mat4)

	// ClearMultiview disables multiview rendering.
	ClearMultiview()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera at (0, 0, -10) looking at the origin.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		position: mgl32.Vec3{0, 0, -10},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      mgl32.DegToRad(45),
		aspect:   1,
		near:     0.1,
		far:      100,
		viewR:    mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Multiview() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.multiview
}

func (c *cameraImpl) ViewProjectionR() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.multiview {
		return mgl32.Ident4()
	}
	return c.viewProjectionR
}

func (c *cameraImpl) LogarithmicDepthConstant() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return 2 / math32.Log2(c.far+1)
}

func (c *cameraImpl) SetPosition(p mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p
	c.updateMatrices()
}

func (c *cameraImpl) SetTarget(t mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = t
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetMultiview(view, projection mgl32.Mat4) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.multiview = true
	c.viewR = view
	c.projectionR = projection
	c.viewProjectionR = projection.Mul4(view)
}

func (c *cameraImpl) ClearMultiview() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.multiview = false
}

// updateMatrices must be called with mu held.
func (c *cameraImpl) updateMatrices() {
	c.viewMatrix = mgl32.LookAtV(c.position, c.target, c.up)
	c.projectionMatrix = mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
}
