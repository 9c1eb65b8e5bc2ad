package wgpu

import (
	_ "embed"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/termdraw"
	"github.com/gogpu/termdraw/gpu"
)

//go:embed shaders/cell.wgsl
var cellShaderWGSL string

// Config configures a Surface.
type Config struct {
	// TargetFormat is the color target's texture format. Zero means
	// BGRA8Unorm, the common swapchain format.
	TargetFormat gputypes.TextureFormat
}

// textureEntry tracks a created texture with its view and extent.
type textureEntry struct {
	texture hal.Texture
	view    hal.TextureView
	width   int
	height  int
}

// Surface implements gpu.Surface over a hal device/queue pair. The
// host owns adapter and swapchain lifecycle and points the surface at
// a target view via SetTarget; everything else lives here.
//
// Not safe for concurrent use; the renderer drives it from a single
// goroutine.
type Surface struct {
	device hal.Device
	queue  hal.Queue
	cfg    Config

	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline
	sampler       hal.Sampler

	// cornerBuf holds the four unit-quad corners; instancing expands
	// them against the per-instance position and size.
	cornerBuf hal.Buffer
	vsBuf     hal.Buffer
	psBuf     hal.Buffer

	nextID   uint64
	buffers  map[gpu.BufferID]hal.Buffer
	textures map[gpu.TextureID]*textureEntry

	bindGroup    hal.BindGroup
	bindGroupKey [2]gpu.TextureID

	target           hal.TextureView
	targetW, targetH int

	// frameStarted selects LoadOpClear for the frame's first render
	// pass and LoadOpLoad for mid-frame flushes after it.
	frameStarted bool
}

// New creates a surface on the given device and queue. The caller must
// call SetTarget before the first draw.
func New(device hal.Device, queue hal.Queue, cfg Config) (*Surface, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: device and queue are required")
	}
	if cfg.TargetFormat == 0 {
		cfg.TargetFormat = gputypes.TextureFormatBGRA8Unorm
	}
	s := &Surface{
		device:   device,
		queue:    queue,
		cfg:      cfg,
		buffers:  make(map[gpu.BufferID]hal.Buffer),
		textures: make(map[gpu.TextureID]*textureEntry),
	}
	if err := s.createPipeline(); err != nil {
		s.Destroy()
		return nil, err
	}
	if err := s.createStaticBuffers(); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

// SetTarget points the surface at the color target for subsequent
// frames. The view must match the configured target format.
func (s *Surface) SetTarget(view hal.TextureView, width, height int) {
	s.target = view
	s.targetW = width
	s.targetH = height
	s.frameStarted = false
}

// Destroy releases every resource the surface owns. The target view
// belongs to the host and is left alone.
func (s *Surface) Destroy() {
	for id, buf := range s.buffers {
		s.device.DestroyBuffer(buf)
		delete(s.buffers, id)
	}
	for id, te := range s.textures {
		s.device.DestroyTextureView(te.view)
		s.device.DestroyTexture(te.texture)
		delete(s.textures, id)
	}
	if s.bindGroup != nil {
		s.device.DestroyBindGroup(s.bindGroup)
		s.bindGroup = nil
	}
	for _, buf := range []hal.Buffer{s.cornerBuf, s.vsBuf, s.psBuf} {
		if buf != nil {
			s.device.DestroyBuffer(buf)
		}
	}
	s.cornerBuf, s.vsBuf, s.psBuf = nil, nil, nil
	if s.sampler != nil {
		s.device.DestroySampler(s.sampler)
		s.sampler = nil
	}
	if s.pipeline != nil {
		s.device.DestroyRenderPipeline(s.pipeline)
		s.pipeline = nil
	}
	if s.pipeLayout != nil {
		s.device.DestroyPipelineLayout(s.pipeLayout)
		s.pipeLayout = nil
	}
	if s.uniformLayout != nil {
		s.device.DestroyBindGroupLayout(s.uniformLayout)
		s.uniformLayout = nil
	}
	if s.shader != nil {
		s.device.DestroyShaderModule(s.shader)
		s.shader = nil
	}
}

// createPipeline compiles the cell shader and builds the instanced
// render pipeline with premultiplied alpha blending.
func (s *Surface) createPipeline() error {
	// SPIR-V via naga keeps module validation at build time; if the
	// compiler rejects the source, hand the WGSL to the driver.
	source := hal.ShaderSource{WGSL: cellShaderWGSL}
	if spirvBytes, err := naga.Compile(cellShaderWGSL); err == nil {
		code := make([]uint32, len(spirvBytes)/4)
		for i := range code {
			code[i] = uint32(spirvBytes[i*4]) |
				uint32(spirvBytes[i*4+1])<<8 |
				uint32(spirvBytes[i*4+2])<<16 |
				uint32(spirvBytes[i*4+3])<<24
		}
		source = hal.ShaderSource{SPIRV: code}
	}

	shader, err := s.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "termdraw_cell_shader",
		Source: source,
	})
	if err != nil {
		return fmt.Errorf("wgpu: compile cell shader: %w", err)
	}
	s.shader = shader

	// Binding 0: VS constants, 1: PS constants, 2: glyph atlas,
	// 3: background bitmap, 4: sampler.
	uniformLayout, err := s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "termdraw_cell_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    4,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	s.uniformLayout = uniformLayout

	pipeLayout, err := s.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "termdraw_cell_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{s.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	s.pipeLayout = pipeLayout

	sampler, err := s.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "termdraw_bitmap_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create sampler: %w", err)
	}
	s.sampler = sampler

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := s.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "termdraw_cell_pipeline",
		Layout: s.pipeLayout,
		Vertex: hal.VertexState{
			Module:     s.shader,
			EntryPoint: "vs_main",
			Buffers:    cellVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     s.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    s.cfg.TargetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create render pipeline: %w", err)
	}
	s.pipeline = pipeline
	return nil
}

// cellVertexLayout declares slot 0 as the shared unit-quad corners and
// slot 1 as the per-instance record. The instance stride and offsets
// must match termdraw.QuadInstance's wire encoding exactly.
func cellVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: 8,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // corner
			},
		},
		{
			ArrayStride: termdraw.QuadInstanceSize,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatUint32, Offset: 0, ShaderLocation: 1},    // shading type
				{Format: gputypes.VertexFormatSint16x2, Offset: 4, ShaderLocation: 2},  // position
				{Format: gputypes.VertexFormatUint16x2, Offset: 8, ShaderLocation: 3},  // size
				{Format: gputypes.VertexFormatUint16x2, Offset: 12, ShaderLocation: 4}, // texcoord
				{Format: gputypes.VertexFormatUnorm8x4, Offset: 16, ShaderLocation: 5}, // color
			},
		},
	}
}

func (s *Surface) createStaticBuffers() error {
	corners := encodeF32s(
		0, 0,
		1, 0,
		0, 1,
		1, 1,
	)
	cornerBuf, err := s.createUploadedBuffer("termdraw_quad_corners", corners,
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	s.cornerBuf = cornerBuf

	vsBuf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "termdraw_vs_constants",
		Size:  termdraw.VSConstantsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create vs constants: %w", err)
	}
	s.vsBuf = vsBuf

	psBuf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "termdraw_ps_constants",
		Size:  termdraw.PSConstantsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create ps constants: %w", err)
	}
	s.psBuf = psBuf
	return nil
}

func (s *Surface) createUploadedBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	s.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// CreateBuffer implements gpu.Surface.
func (s *Surface) CreateBuffer(size int, usage gpu.BufferUsage) (gpu.BufferID, error) {
	buf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "termdraw_buffer",
		Size:  uint64(size),
		Usage: convertBufferUsage(usage),
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("wgpu: create buffer: %w", err)
	}
	s.nextID++
	id := gpu.BufferID(s.nextID)
	s.buffers[id] = buf
	return id, nil
}

// DestroyBuffer implements gpu.Surface.
func (s *Surface) DestroyBuffer(id gpu.BufferID) {
	if buf, ok := s.buffers[id]; ok {
		s.device.DestroyBuffer(buf)
		delete(s.buffers, id)
	}
}

// WriteBuffer implements gpu.Surface.
func (s *Surface) WriteBuffer(id gpu.BufferID, offset int, data []byte) error {
	buf, ok := s.buffers[id]
	if !ok {
		return fmt.Errorf("wgpu: write to unknown buffer %d", id)
	}
	s.queue.WriteBuffer(buf, uint64(offset), data)
	return nil
}

// CreateTexture implements gpu.Surface.
func (s *Surface) CreateTexture(width, height int, format gpu.TextureFormat) (gpu.TextureID, error) {
	if format != gpu.TextureFormatRGBA8 {
		return gpu.InvalidID, fmt.Errorf("wgpu: unsupported texture format %d", format)
	}
	tex, err := s.device.CreateTexture(&hal.TextureDescriptor{
		Label: "termdraw_texture",
		Size: hal.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("wgpu: create texture: %w", err)
	}
	view, err := s.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "termdraw_texture_view",
	})
	if err != nil {
		s.device.DestroyTexture(tex)
		return gpu.InvalidID, fmt.Errorf("wgpu: create texture view: %w", err)
	}
	s.nextID++
	id := gpu.TextureID(s.nextID)
	s.textures[id] = &textureEntry{texture: tex, view: view, width: width, height: height}
	return id, nil
}

// DestroyTexture implements gpu.Surface.
func (s *Surface) DestroyTexture(id gpu.TextureID) {
	te, ok := s.textures[id]
	if !ok {
		return
	}
	// The cached bind group may reference the dying view.
	if s.bindGroupKey[0] == id || s.bindGroupKey[1] == id {
		s.dropBindGroup()
	}
	s.device.DestroyTextureView(te.view)
	s.device.DestroyTexture(te.texture)
	delete(s.textures, id)
}

// WriteTexture implements gpu.Surface.
func (s *Surface) WriteTexture(id gpu.TextureID, region gpu.Region, data []byte) error {
	te, ok := s.textures[id]
	if !ok {
		return fmt.Errorf("wgpu: write to unknown texture %d", id)
	}
	if want := region.Width * region.Height * 4; len(data) != want {
		return fmt.Errorf("wgpu: texture write size %d, want %d", len(data), want)
	}
	s.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  te.texture,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(region.X), Y: uint32(region.Y), Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(region.Width) * 4,
			RowsPerImage: uint32(region.Height),
		},
		&hal.Extent3D{
			Width:              uint32(region.Width),
			Height:             uint32(region.Height),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// UpdateConstants implements gpu.Surface.
func (s *Surface) UpdateConstants(vs, ps []byte) error {
	if len(vs) != termdraw.VSConstantsSize || len(ps) != termdraw.PSConstantsSize {
		return fmt.Errorf("wgpu: constant block sizes %d/%d, want %d/%d",
			len(vs), len(ps), termdraw.VSConstantsSize, termdraw.PSConstantsSize)
	}
	s.queue.WriteBuffer(s.vsBuf, 0, vs)
	s.queue.WriteBuffer(s.psBuf, 0, ps)
	return nil
}

func (s *Surface) dropBindGroup() {
	if s.bindGroup != nil {
		s.device.DestroyBindGroup(s.bindGroup)
		s.bindGroup = nil
		s.bindGroupKey = [2]gpu.TextureID{}
	}
}

// ensureBindGroup builds the frame bind group for the atlas/background
// texture pair, reusing the cached one while the pair is unchanged.
func (s *Surface) ensureBindGroup(atlas, background gpu.TextureID) (hal.BindGroup, error) {
	key := [2]gpu.TextureID{atlas, background}
	if s.bindGroup != nil && s.bindGroupKey == key {
		return s.bindGroup, nil
	}
	atlasTe, ok := s.textures[atlas]
	if !ok {
		return nil, fmt.Errorf("wgpu: unknown atlas texture %d", atlas)
	}
	bgTe, ok := s.textures[background]
	if !ok {
		return nil, fmt.Errorf("wgpu: unknown background texture %d", background)
	}
	s.dropBindGroup()

	bg, err := s.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "termdraw_cell_bind",
		Layout: s.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: s.vsBuf.NativeHandle(), Offset: 0, Size: termdraw.VSConstantsSize,
			}},
			{Binding: 1, Resource: gputypes.BufferBinding{
				Buffer: s.psBuf.NativeHandle(), Offset: 0, Size: termdraw.PSConstantsSize,
			}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{
				TextureView: atlasTe.view.NativeHandle(),
			}},
			{Binding: 3, Resource: gputypes.TextureViewBinding{
				TextureView: bgTe.view.NativeHandle(),
			}},
			{Binding: 4, Resource: gputypes.SamplerBinding{
				Sampler: s.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create bind group: %w", err)
	}
	s.bindGroup = bg
	s.bindGroupKey = key
	return bg, nil
}

// DrawInstanced implements gpu.Surface: one render pass with a single
// instanced draw, submitted immediately. The frame's first pass clears
// the target; mid-frame flushes load it back.
func (s *Surface) DrawInstanced(instances gpu.BufferID, instanceCount int, atlas, background gpu.TextureID) error {
	if s.target == nil {
		return fmt.Errorf("wgpu: no render target set")
	}
	instBuf, ok := s.buffers[instances]
	if !ok {
		return fmt.Errorf("wgpu: unknown instance buffer %d", instances)
	}
	bindGroup, err := s.ensureBindGroup(atlas, background)
	if err != nil {
		return err
	}

	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "termdraw_frame_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("termdraw_frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	loadOp := gputypes.LoadOpClear
	if s.frameStarted {
		loadOp = gputypes.LoadOpLoad
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "termdraw_cell_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       s.target,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(s.pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.SetVertexBuffer(0, s.cornerBuf, 0)
	rp.SetVertexBuffer(1, instBuf, 0)
	rp.Draw(4, uint32(instanceCount), 0, 0)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer s.device.FreeCommandBuffer(cmdBuf)

	// A failed submission means the device is gone for our purposes;
	// surface it as device loss so the renderer rebuilds. No fence
	// wait: the host's presentation synchronizes with the queue.
	if _, err := s.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("%w: submit: %v", gpu.ErrDeviceLost, err)
	}

	s.frameStarted = true
	return nil
}

// Present implements gpu.Surface. Rendering is already submitted
// per draw; presentation of the target view belongs to the
// host's swapchain, so this only closes the frame boundary.
func (s *Surface) Present() error {
	s.frameStarted = false
	return nil
}

func convertBufferUsage(usage gpu.BufferUsage) gputypes.BufferUsage {
	var result gputypes.BufferUsage
	if usage&gpu.BufferUsageCopyDst != 0 {
		result |= gputypes.BufferUsageCopyDst
	}
	if usage&gpu.BufferUsageVertex != 0 {
		result |= gputypes.BufferUsageVertex
	}
	if usage&gpu.BufferUsageUniform != 0 {
		result |= gputypes.BufferUsageUniform
	}
	return result
}

func encodeF32s(vs ...float32) []byte {
	data := make([]byte, len(vs)*4)
	for i, v := range vs {
		bits := math.Float32bits(v)
		data[i*4+0] = byte(bits)
		data[i*4+1] = byte(bits >> 8)
		data[i*4+2] = byte(bits >> 16)
		data[i*4+3] = byte(bits >> 24)
	}
	return data
}
