package present

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan backend so GetBackend finds it.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// overlayVertexStride is bytes per overlay vertex: vec2 position + vec4 color.
const overlayVertexStride = 24

// halProvider is the structural interface a gpucontext.DeviceProvider
// exposes when it can share raw HAL handles.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// HALDevice implements Device on gogpu/wgpu HAL.
//
// Terminal content is uploaded into the frame texture with WriteTexture;
// overlay layers are then drawn over it in a render pass using the
// overlay pipeline. The frame texture has TextureBinding usage so the
// embedding window system can sample it through gpucontext texture
// sharing. When no provider is given, HALDevice opens its own Vulkan
// device.
//
// HALDevice is not safe for concurrent use; the Presenter confines it
// to one goroutine.
type HALDevice struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	owned    bool

	width  int
	height int

	frameTex  hal.Texture
	frameView hal.TextureView

	shader     hal.ShaderModule
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	vertexBuf hal.Buffer
	vertexCap uint64

	// staged holds the frame pixels between UploadTerminal and EndFrame.
	staged []uint8

	// verts accumulates overlay vertex data for the current frame.
	verts     []byte
	vertCount uint32

	lost bool
	log  *slog.Logger
}

var _ Device = (*HALDevice)(nil)

// NewHALDevice creates a HAL-backed device.
//
// The provider should come from the embedding application (for example
// gogpu.App.GPUContextProvider()) and implement HalDevice()/HalQueue().
// Pass nil to open a dedicated Vulkan device instead.
func NewHALDevice(provider gpucontext.DeviceProvider, log *slog.Logger) (*HALDevice, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	d := &HALDevice{log: log}

	if provider != nil {
		hp, ok := provider.(halProvider)
		if !ok {
			return nil, fmt.Errorf("present: provider does not expose HAL types")
		}
		device, ok := hp.HalDevice().(hal.Device)
		if !ok || device == nil {
			return nil, fmt.Errorf("present: provider HalDevice is not hal.Device")
		}
		queue, ok := hp.HalQueue().(hal.Queue)
		if !ok || queue == nil {
			return nil, fmt.Errorf("present: provider HalQueue is not hal.Queue")
		}
		d.device = device
		d.queue = queue
	} else if err := d.openDevice(); err != nil {
		return nil, err
	}

	if err := d.createPipeline(); err != nil {
		d.Destroy()
		return nil, err
	}

	return d, nil
}

// openDevice opens a dedicated Vulkan device.
func (d *HALDevice) openDevice() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("present: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("present: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("present: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("present: open device: %w", err)
	}
	d.instance = instance
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.owned = true
	d.log.Info("GPU device opened", "adapter", selected.Info.Name)
	return nil
}

// createPipeline compiles the overlay shader and builds the quad pipeline.
func (d *HALDevice) createPipeline() error {
	spirv, err := compileSPIRV(overlayWGSL)
	if err != nil {
		return err
	}

	shader, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "present_overlay",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("present: compile overlay shader: %w", err)
	}
	d.shader = shader

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "present_overlay_layout",
		BindGroupLayouts: []hal.BindGroupLayout{},
	})
	if err != nil {
		return fmt.Errorf("present: create pipeline layout: %w", err)
	}
	d.pipeLayout = pipeLayout

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "present_overlay_pipeline",
		Layout: d.pipeLayout,
		Vertex: hal.VertexState{
			Module:     d.shader,
			EntryPoint: "vs_main",
			Buffers:    overlayVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     d.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    gputypes.TextureFormatRGBA8Unorm,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("present: create overlay pipeline: %w", err)
	}
	d.pipeline = pipeline
	return nil
}

// overlayVertexLayout matches VSIn in the overlay shader:
//
//	location 0: position (vec2<f32>)
//	location 1: color (vec4<f32>)
func overlayVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: overlayVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1}, // color
			},
		},
	}
}

// Configure implements Device.
func (d *HALDevice) Configure(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrame, width, height)
	}
	if d.lost {
		return ErrDeviceLost
	}
	if d.width == width && d.height == height && d.frameTex != nil {
		return nil
	}
	d.destroyFrameTexture()

	w, h := uint32(width), uint32(height) //nolint:gosec // dimensions validated above

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "present_frame",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return d.fail(fmt.Errorf("present: create frame texture: %w", err))
	}
	d.frameTex = tex

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "present_frame_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.destroyFrameTexture()
		return d.fail(fmt.Errorf("present: create frame view: %w", err))
	}
	d.frameView = view

	d.width = width
	d.height = height
	return nil
}

// BeginFrame implements Device.
func (d *HALDevice) BeginFrame() error {
	if d.lost {
		return ErrDeviceLost
	}
	d.staged = nil
	d.verts = d.verts[:0]
	d.vertCount = 0
	return nil
}

// UploadTerminal implements Device.
func (d *HALDevice) UploadTerminal(width, height int, pixels []uint8) error {
	if d.lost {
		return ErrDeviceLost
	}
	if width != d.width || height != d.height || len(pixels) != width*height*4 {
		return fmt.Errorf("%w: upload %dx%d into %dx%d texture",
			ErrInvalidFrame, width, height, d.width, d.height)
	}
	d.staged = pixels
	return nil
}

// DrawLayer implements Device.
func (d *HALDevice) DrawLayer(layer Layer, quads []Quad) error {
	if d.lost {
		return ErrDeviceLost
	}
	if layer == LayerWallpaper || layer == LayerTerminal {
		// Content arrives through UploadTerminal.
		return nil
	}
	for i := range quads {
		d.appendQuad(&quads[i])
	}
	return nil
}

// appendQuad packs one quad into the overlay vertex stream as two
// triangles.
func (d *HALDevice) appendQuad(q *Quad) {
	x0, y0 := q.X, q.Y
	x1, y1 := q.X+q.W, q.Y-q.H
	corners := [6][2]float32{
		{x0, y0}, {x0, y1}, {x1, y1},
		{x0, y0}, {x1, y1}, {x1, y0},
	}
	for _, c := range corners {
		d.verts = appendF32(d.verts, c[0], c[1],
			q.Color[0], q.Color[1], q.Color[2], q.Color[3])
	}
	d.vertCount += 6
}

func appendF32(dst []byte, vals ...float32) []byte {
	for _, v := range vals {
		bits := math.Float32bits(v)
		dst = append(dst, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return dst
}

// EndFrame implements Device.
func (d *HALDevice) EndFrame() error {
	if d.lost {
		return ErrDeviceLost
	}
	if d.staged == nil || d.frameTex == nil {
		return ErrInvalidFrame
	}

	w, h := uint32(d.width), uint32(d.height) //nolint:gosec // set by Configure

	d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  d.frameTex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		d.staged,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)

	if d.vertCount > 0 {
		if err := d.ensureVertexBuffer(uint64(len(d.verts))); err != nil {
			return err
		}
		d.queue.WriteBuffer(d.vertexBuf, 0, d.verts)
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "present_frame_encoder",
	})
	if err != nil {
		return d.fail(fmt.Errorf("present: create encoder: %w", err))
	}
	if err := encoder.BeginEncoding("present_frame"); err != nil {
		return d.fail(fmt.Errorf("present: begin encoding: %w", err))
	}

	// Uploaded terminal content is loaded, overlays drawn on top.
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "present_overlay_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    d.frameView,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	if d.vertCount > 0 {
		rp.SetPipeline(d.pipeline)
		rp.SetVertexBuffer(0, d.vertexBuf, 0)
		rp.Draw(d.vertCount, 1, 0, 0)
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return d.fail(fmt.Errorf("present: end encoding: %w", err))
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return d.fail(fmt.Errorf("present: submit: %w", err))
	}
	if err := d.device.WaitIdle(); err != nil {
		return d.fail(fmt.Errorf("present: wait for GPU: %w", err))
	}

	d.staged = nil
	return nil
}

// FrameTexture returns the presented texture and its view for the
// embedding window system to draw. Nil until Configure succeeds.
func (d *HALDevice) FrameTexture() (hal.Texture, hal.TextureView) {
	return d.frameTex, d.frameView
}

// ensureVertexBuffer grows the overlay vertex buffer as needed.
func (d *HALDevice) ensureVertexBuffer(size uint64) error {
	if d.vertexBuf != nil && d.vertexCap >= size {
		return nil
	}
	if d.vertexBuf != nil {
		d.device.DestroyBuffer(d.vertexBuf)
		d.vertexBuf = nil
	}
	// Round up to limit reallocation as quad counts fluctuate.
	capacity := size + size/2
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "present_overlay_vertices",
		Size:  capacity,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return d.fail(fmt.Errorf("present: create vertex buffer: %w", err))
	}
	d.vertexBuf = buf
	d.vertexCap = capacity
	return nil
}

// fail marks the device lost and wraps the cause.
func (d *HALDevice) fail(cause error) error {
	d.lost = true
	d.log.Error("GPU device lost", "err", cause)
	return fmt.Errorf("%w: %v", ErrDeviceLost, cause)
}

// Recover implements Device. It rebuilds every GPU resource, reopening
// the device itself when this HALDevice owns it.
func (d *HALDevice) Recover() error {
	d.log.Info("recovering GPU device")

	d.destroyResources()
	if d.owned {
		if d.device != nil {
			d.device.Destroy()
			d.device = nil
			d.queue = nil
		}
		if d.instance != nil {
			d.instance.Destroy()
			d.instance = nil
		}
		if err := d.openDevice(); err != nil {
			return err
		}
	}

	d.lost = false
	if err := d.createPipeline(); err != nil {
		d.lost = true
		return err
	}
	if d.width > 0 && d.height > 0 {
		w, h := d.width, d.height
		d.width, d.height = 0, 0
		if err := d.Configure(w, h); err != nil {
			return err
		}
	}
	return nil
}

// Destroy implements Device.
func (d *HALDevice) Destroy() {
	d.destroyResources()
	if d.owned && d.device != nil {
		d.device.Destroy()
		d.device = nil
		d.queue = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

// destroyResources releases everything except the device itself.
func (d *HALDevice) destroyResources() {
	if d.device == nil {
		return
	}
	d.destroyFrameTexture()
	if d.vertexBuf != nil {
		d.device.DestroyBuffer(d.vertexBuf)
		d.vertexBuf = nil
		d.vertexCap = 0
	}
	if d.pipeline != nil {
		d.device.DestroyRenderPipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.shader != nil {
		d.device.DestroyShaderModule(d.shader)
		d.shader = nil
	}
}

// destroyFrameTexture releases the frame texture and its view.
func (d *HALDevice) destroyFrameTexture() {
	if d.frameView != nil {
		d.device.DestroyTextureView(d.frameView)
		d.frameView = nil
	}
	if d.frameTex != nil {
		d.device.DestroyTexture(d.frameTex)
		d.frameTex = nil
	}
}
