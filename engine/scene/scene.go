// Package scene holds the entity-component scene and its per-frame update pipeline.
package scene

import (
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/jobsystem"
	"github.com/Carmen-Shannon/oxy-scene/engine/light"
	"github.com/chewxy/math32"
	"go.uber.org/zap"
)

// Scene is a set of component stores keyed by entity plus the GPU arenas the update
// pipeline fills each frame. Every method must be called from the goroutine driving the
// scene; Update parallelizes internally.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active reports whether the engine should update this scene.
	Active() bool

	// SetActive sets whether the engine should update this scene.
	SetActive(active bool)

	// Update advances the scene by one frame: scripts, animation, transforms, constraints,
	// every per-kind updater, the bounds reduction and the GPU record arenas.
	// A dt <= 0 recomputes derived state without side effects such as terrain generation,
	// lightmap requests, spring resets and ripple aging.
	//
	// Parameters:
	//   - dt: elapsed time in seconds since the previous frame
	Update(dt float32)

	// Clear removes every component and releases the scene's GPU resources.
	Clear()

	// Merge moves every component of other into this scene, leaving other empty.
	// The global illumination volume of other is adopted if this scene has none.
	//
	// Parameters:
	//   - other: the scene to drain, created by NewScene
	Merge(other Scene)

	// Close releases GPU resources and the scheduler when the scene created it.
	Close()

	// Library returns the registry of every component store.
	Library() *ecs.ComponentLibrary

	Names() *ecs.ComponentManager[NameComponent]
	Layers() *ecs.ComponentManager[LayerComponent]
	Transforms() *ecs.ComponentManager[TransformComponent]
	Hierarchy() *ecs.ComponentManager[HierarchyComponent]
	Materials() *ecs.ComponentManager[MaterialComponent]
	Meshes() *ecs.ComponentManager[MeshComponent]
	Impostors() *ecs.ComponentManager[ImpostorComponent]
	Objects() *ecs.ComponentManager[ObjectComponent]
	ObjectAABBs() *ecs.ComponentManager[common.AABB]
	RigidBodies() *ecs.ComponentManager[RigidBodyComponent]
	SoftBodies() *ecs.ComponentManager[SoftBodyComponent]
	Armatures() *ecs.ComponentManager[ArmatureComponent]
	Lights() *ecs.ComponentManager[light.Light]
	LightAABBs() *ecs.ComponentManager[common.AABB]
	Cameras() *ecs.ComponentManager[camera.Camera]
	Probes() *ecs.ComponentManager[EnvironmentProbeComponent]
	ProbeAABBs() *ecs.ComponentManager[common.AABB]
	Forces() *ecs.ComponentManager[ForceFieldComponent]
	Decals() *ecs.ComponentManager[DecalComponent]
	DecalAABBs() *ecs.ComponentManager[common.AABB]
	Animations() *ecs.ComponentManager[AnimationComponent]
	AnimationDatas() *ecs.ComponentManager[AnimationDataComponent]
	Emitters() *ecs.ComponentManager[EmitterComponent]
	Hairs() *ecs.ComponentManager[HairComponent]
	Weathers() *ecs.ComponentManager[WeatherComponent]
	Sounds() *ecs.ComponentManager[SoundComponent]
	InverseKinematics() *ecs.ComponentManager[InverseKinematicsComponent]
	Springs() *ecs.ComponentManager[SpringComponent]
	Colliders() *ecs.ComponentManager[ColliderComponent]
	Scripts() *ecs.ComponentManager[ScriptComponent]
	Expressions() *ecs.ComponentManager[ExpressionComponent]

	// Camera returns the main camera used for level of detail, audio and terrain.
	Camera() *camera.Camera

	// SetCamera replaces the main camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Weather returns the active weather resolved by the last Update.
	Weather() *WeatherComponent

	// Bounds returns the merged bounds of every object from the last Update.
	Bounds() common.AABB

	// CollidersCPU returns the world space colliders springs resolve against.
	CollidersCPU() []ColliderComponent

	// CollidersGPU returns the world space colliders uploaded for GPU particles.
	CollidersGPU() []ColliderComponent

	// Ripples returns the live water ripples.
	Ripples() []WaterRipple

	// PutWaterRipple spawns a ripple on a water surface.
	//
	// Parameters:
	//   - pos: world position of the ripple center
	PutWaterRipple(pos common.Vec3)

	// Entity_CreateTransform creates an entity with a name and a transform.
	Entity_CreateTransform(name string) ecs.Entity
	// Entity_CreateMaterial creates an entity with a name and a material.
	Entity_CreateMaterial(name string) ecs.Entity
	// Entity_CreateObject creates a renderable object without a mesh.
	Entity_CreateObject(name string) ecs.Entity
	// Entity_CreateMesh creates an empty mesh entity.
	Entity_CreateMesh(name string) ecs.Entity

	// Entity_CreateLight creates a light at a position.
	//
	// Parameters:
	//   - name: entity name
	//   - pos: world position
	//   - color: light color
	//   - intensity: brightness multiplier
	//   - rng: attenuation range
	//   - typ: directional, point or spot
	//   - outerConeAngle, innerConeAngle: spot cone angles in radians
	//
	// Returns:
	//   - ecs.Entity: the new light entity
	Entity_CreateLight(name string, pos, color common.Vec3, intensity, rng float32, typ light.LightType, outerConeAngle, innerConeAngle float32) ecs.Entity

	Entity_CreateForce(name string, pos common.Vec3) ecs.Entity
	Entity_CreateEnvironmentProbe(name string, pos common.Vec3) ecs.Entity
	Entity_CreateDecal(name, textureName, normalMapName string) ecs.Entity
	Entity_CreateCamera(name string, width, height, near, far, fov float32) ecs.Entity
	Entity_CreateEmitter(name string, pos common.Vec3) ecs.Entity
	Entity_CreateHair(name string, pos common.Vec3) ecs.Entity
	Entity_CreateSound(name, filename string, pos common.Vec3) ecs.Entity

	// Entity_CreateCube creates an object with its own unit cube mesh and material.
	//
	// Parameters:
	//   - name: entity name
	//
	// Returns:
	//   - ecs.Entity: an entity holding object, mesh and material components
	Entity_CreateCube(name string) ecs.Entity

	// Entity_CreatePlane creates an object with its own unit plane mesh facing +Y.
	Entity_CreatePlane(name string) ecs.Entity

	// Entity_Remove removes e from every store. With recursive set, every descendant is
	// removed first; otherwise children keep a dangling parent reference that lookups treat
	// as absent.
	//
	// Parameters:
	//   - e: the entity to remove
	//   - recursive: whether to remove the hierarchy below e
	Entity_Remove(e ecs.Entity, recursive bool)

	// Entity_Duplicate copies e and its descendants to new entities, remapping references
	// between the copied entities.
	//
	// Parameters:
	//   - e: the root entity to copy
	//
	// Returns:
	//   - ecs.Entity: the copy of e
	Entity_Duplicate(e ecs.Entity) ecs.Entity

	// Entity_FindByName returns the first entity with the given name, InvalidEntity if none.
	Entity_FindByName(name string) ecs.Entity

	// Component_Attach makes parent the hierarchy parent of e. Panics when e == parent or
	// parent is a descendant of e.
	//
	// Parameters:
	//   - e: the child entity
	//   - parent: the new parent
	//   - childAlreadyInLocalSpace: true when e's locals are already relative to parent
	Component_Attach(e, parent ecs.Entity, childAlreadyInLocalSpace bool)

	// Component_Detach removes e's hierarchy edge and bakes its world transform into its locals.
	Component_Detach(e ecs.Entity)

	// Component_DetachChildren detaches every direct child of parent.
	Component_DetachChildren(parent ecs.Entity)

	// Pick returns the nearest object triangle hit by ray.
	//
	// Parameters:
	//   - ray: the world space ray
	//   - renderTypeMask: RenderType bits an object must have one of
	//   - layerMask: layer bits an object must share
	//
	// Returns:
	//   - PickResult: the hit, Entity is InvalidEntity when nothing was hit
	Pick(ray common.Ray, renderTypeMask, layerMask uint32) PickResult

	// IntersectSphere returns the deepest object triangle contact with a sphere.
	IntersectSphere(sphere common.Sphere, renderTypeMask, layerMask uint32) CollisionResult

	// IntersectCapsule returns the deepest object triangle contact with a capsule.
	IntersectCapsule(capsule common.Capsule, renderTypeMask, layerMask uint32) CollisionResult

	// Archive writes every entity and component as YAML.
	Archive(w io.Writer) error

	// LoadArchive adds the entities of a YAML archive to the scene under new ids.
	//
	// Returns:
	//   - []ecs.Entity: the created entities
	//   - error: an error if the archive could not be decoded
	LoadArchive(r io.Reader) ([]ecs.Entity, error)

	InstanceBuffer() *gpu.StructuredBuffer
	MaterialBuffer() *gpu.StructuredBuffer
	GeometryBuffer() *gpu.StructuredBuffer
	MeshletBuffer() *gpu.StructuredBuffer
	TLASBuffer() *gpu.StructuredBuffer
	SceneBuffer() *gpu.StructuredBuffer
	// LightBuffer holds a header slot followed by every enabled light.
	LightBuffer() *gpu.StructuredBuffer
	// CameraBuffer holds the main camera in slot 0 followed by every camera component.
	CameraBuffer() *gpu.StructuredBuffer
	// ShadowBuffer holds the directional shadow of the most important light.
	ShadowBuffer() *gpu.StructuredBuffer

	// InstanceCount returns the number of instance records the last Update wrote.
	InstanceCount() int
	// LightCount returns how many lights the last Update wrote into the light buffer.
	LightCount() int

	// GeometryCount returns the number of geometry records the last Update wrote.
	GeometryCount() int

	// MeshletCount returns the number of meshlet records the last Update wrote.
	MeshletCount() int

	// ShaderScene returns the scene constants written by the last Update.
	ShaderScene() ShaderScene

	// FrameIndex returns the in-flight frame slot the next Update writes.
	FrameIndex() int

	// Time returns the accumulated simulation time.
	Time() float32

	// SetOcclusionResults stores the renderer's occlusion query readback for a query heap
	// slot. A non-zero entry means the query saw samples.
	SetOcclusionResults(slot int, results []uint64)

	// QueryHeapIndex returns the query heap slot objects read this frame.
	QueryHeapIndex() int

	// LightmapRefreshNeeded reports whether a lightmap was requested by the last Update.
	LightmapRefreshNeeded() bool

	// BVHUpdateRequested reports whether the CPU BVH must be rebuilt for lightmap baking.
	BVHUpdateRequested() bool

	// Textures returns the one-time render targets created so far.
	Textures() SceneTextures
}

// SceneTextures are the fixed format render targets a scene creates on first need.
type SceneTextures struct {
	ImpostorDepth gpu.Texture
	ImpostorArray gpu.Texture
	EnvMapDepth   gpu.Texture
	EnvMapArray   gpu.Texture
	// SurfelGI and DDGIColor are ping-pong pairs; index 0 is written this frame and index 1
	// holds the previous frame.
	SurfelGI  [2]gpu.Texture
	DDGIColor [2]gpu.Texture
	DDGIDepth gpu.Texture
}

// Update pipeline sizing.
const (
	// SmallSubtaskGroupSize is the Dispatch group size of the per-kind updaters.
	SmallSubtaskGroupSize = 64
	// MaxHierarchyDepth bounds the ancestor walk.
	MaxHierarchyDepth = 1024

	impostorTextureDim = 128
	maxImpostorCount   = 8
	envmapCount        = 16
	envmapResolution   = 128
	envmapMips         = 8
	surfelResolution   = 256
)

type scene struct {
	name   string
	active bool

	logger    *zap.Logger
	scheduler jobsystem.Scheduler
	ownsSched bool
	device    gpu.Device
	physics   PhysicsSystem
	audio     AudioEngine
	scripts   ScriptRunner
	terrain   TerrainGenerator
	rng       *rand.Rand

	topDownHierarchy bool
	surfelGI         bool
	ddgiEnabled      bool
	captureAngles    uint32

	ctx jobsystem.Context

	library          *ecs.ComponentLibrary
	names            *ecs.ComponentManager[NameComponent]
	layers           *ecs.ComponentManager[LayerComponent]
	transforms       *ecs.ComponentManager[TransformComponent]
	hierarchy        *ecs.ComponentManager[HierarchyComponent]
	materials        *ecs.ComponentManager[MaterialComponent]
	meshes           *ecs.ComponentManager[MeshComponent]
	impostors        *ecs.ComponentManager[ImpostorComponent]
	objects          *ecs.ComponentManager[ObjectComponent]
	aabbObjects      *ecs.ComponentManager[common.AABB]
	rigidbodies      *ecs.ComponentManager[RigidBodyComponent]
	softbodies       *ecs.ComponentManager[SoftBodyComponent]
	armatures        *ecs.ComponentManager[ArmatureComponent]
	lights           *ecs.ComponentManager[light.Light]
	aabbLights       *ecs.ComponentManager[common.AABB]
	cameras          *ecs.ComponentManager[camera.Camera]
	probes           *ecs.ComponentManager[EnvironmentProbeComponent]
	aabbProbes       *ecs.ComponentManager[common.AABB]
	forces           *ecs.ComponentManager[ForceFieldComponent]
	decals           *ecs.ComponentManager[DecalComponent]
	aabbDecals       *ecs.ComponentManager[common.AABB]
	animations       *ecs.ComponentManager[AnimationComponent]
	animationDatas   *ecs.ComponentManager[AnimationDataComponent]
	emitters         *ecs.ComponentManager[EmitterComponent]
	hairs            *ecs.ComponentManager[HairComponent]
	weathers         *ecs.ComponentManager[WeatherComponent]
	sounds           *ecs.ComponentManager[SoundComponent]
	inverseKinematic *ecs.ComponentManager[InverseKinematicsComponent]
	springs          *ecs.ComponentManager[SpringComponent]
	colliders        *ecs.ComponentManager[ColliderComponent]
	scriptComps      *ecs.ComponentManager[ScriptComponent]
	expressions      *ecs.ComponentManager[ExpressionComponent]

	cam     camera.Camera
	weather WeatherComponent

	dt         float32
	time       float32
	springTime float32
	frameCount uint32
	frameIndex int

	bounds         common.AABB
	parallelBounds []common.AABB
	collidersCPU   []ColliderComponent
	collidersGPU   []ColliderComponent
	ripples        []WaterRipple

	instanceArena  *gpu.StructuredBuffer
	materialArena  *gpu.StructuredBuffer
	geometryArena  *gpu.StructuredBuffer
	meshletArena   *gpu.StructuredBuffer
	tlasArena      *gpu.StructuredBuffer
	sceneArena     *gpu.StructuredBuffer
	lightArena     *gpu.StructuredBuffer
	cameraArena    *gpu.StructuredBuffer
	shadowArena    *gpu.StructuredBuffer
	shaderScene    ShaderScene
	instanceCount  int
	lightCount     int
	materialCount  int
	geometryCount  int
	meshletCount   int
	raytracing     bool
	impostorBuffer gpu.Buffer
	impostorLayout gpu.CompositeLayout
	impostorSize   uint64

	geometryAllocator atomic.Uint32
	meshletAllocator  atomic.Uint32

	impostorInstanceOffset uint32
	impostorGeometryOffset uint32
	impostorMaterialOffset uint32
	impostorSlots          [maxImpostorCount]ecs.Entity
	probeSlots             [envmapCount]ecs.Entity

	textures SceneTextures

	queryHeapIndex    int
	queryHeapCapacity int
	occlusionResults  [occlusionQueryRing][]uint64
	queryAllocator    atomic.Uint32

	matrixObjects     []common.Mat4
	matrixObjectsPrev []common.Mat4
	lightmaps         map[ecs.Entity]gpu.Texture

	lightmapRefreshNeeded atomic.Bool
	bvhUpdateRequested    bool

	mostImportantMu sync.Mutex

	ddgi ddgiVolume

	depthWarning sync.Once
}

// ddgiVolume is the probe grid of dynamic diffuse global illumination.
type ddgiVolume struct {
	FrameIndex uint32
	GridMin    common.Vec3
	GridMax    common.Vec3
	Valid      bool
}

var _ Scene = &scene{}

// NewScene creates an empty scene.
//
// Parameters:
//   - name: the scene identifier
//   - options: builder options
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		name:          name,
		active:        true,
		logger:        zap.NewNop(),
		physics:       nopPhysics{},
		scripts:       nopScripts{},
		terrain:       nopTerrain{},
		captureAngles: 36,
		rng:           rand.New(rand.NewPCG(1, 2)),
		lightmaps:     make(map[ecs.Entity]gpu.Texture),
		bounds:        common.EmptyAABB(),
	}
	s.cam.SetDefaults()
	s.weather.SetDefaults()

	for _, option := range options {
		option(s)
	}

	if s.audio == nil {
		s.audio = NewLogAudioEngine(s.logger)
	}
	if s.scheduler == nil {
		s.scheduler = jobsystem.NewScheduler(jobsystem.WithLogger(s.logger))
		s.ownsSched = true
	}
	if s.device == nil {
		s.device = gpu.NewMemoryDevice()
	}

	s.registerStores()
	s.instanceArena = gpu.NewStructuredBuffer(s.device, "Scene::instanceBuffer", shaderMeshInstanceSize, gpu.BufferUsageStorage)
	s.materialArena = gpu.NewStructuredBuffer(s.device, "Scene::materialBuffer", shaderMaterialSize, gpu.BufferUsageStorage)
	s.geometryArena = gpu.NewStructuredBuffer(s.device, "Scene::geometryBuffer", shaderGeometrySize, gpu.BufferUsageStorage)
	s.meshletArena = gpu.NewStructuredBuffer(s.device, "Scene::meshletBuffer", shaderMeshletSize, gpu.BufferUsageStorage)
	s.tlasArena = gpu.NewStructuredBuffer(s.device, "Scene::TLAS_instances", tlasInstanceSize, gpu.BufferUsageRaytracing)
	s.sceneArena = gpu.NewStructuredBuffer(s.device, "Scene::constants", shaderSceneSize, gpu.BufferUsageUniform)
	s.lightArena = gpu.NewStructuredBuffer(s.device, "Scene::lightBuffer", lightRecordSize, gpu.BufferUsageStorage)
	s.cameraArena = gpu.NewStructuredBuffer(s.device, "Scene::cameraBuffer", cameraRecordSize, gpu.BufferUsageStorage)
	s.shadowArena = gpu.NewStructuredBuffer(s.device, "Scene::shadowBuffer", shadowRecordSize, gpu.BufferUsageUniform)
	return s
}

func (s *scene) registerStores() {
	l := ecs.NewComponentLibrary()
	s.library = l
	s.names = ecs.Register[NameComponent](l, "name")
	s.layers = ecs.Register[LayerComponent](l, "layer")
	s.transforms = ecs.Register[TransformComponent](l, "transform")
	s.hierarchy = ecs.Register[HierarchyComponent](l, "hierarchy")
	s.hierarchy.SetKeepSorted(true)
	s.materials = ecs.Register[MaterialComponent](l, "material")
	s.meshes = ecs.Register[MeshComponent](l, "mesh")
	s.impostors = ecs.Register[ImpostorComponent](l, "impostor")
	s.objects = ecs.Register[ObjectComponent](l, "object")
	s.aabbObjects = ecs.Register[common.AABB](l, "aabb_object")
	s.rigidbodies = ecs.Register[RigidBodyComponent](l, "rigidbody")
	s.softbodies = ecs.Register[SoftBodyComponent](l, "softbody")
	s.armatures = ecs.Register[ArmatureComponent](l, "armature")
	s.lights = ecs.Register[light.Light](l, "light")
	s.aabbLights = ecs.Register[common.AABB](l, "aabb_light")
	s.cameras = ecs.Register[camera.Camera](l, "camera")
	s.probes = ecs.Register[EnvironmentProbeComponent](l, "probe")
	s.aabbProbes = ecs.Register[common.AABB](l, "aabb_probe")
	s.forces = ecs.Register[ForceFieldComponent](l, "force")
	s.decals = ecs.Register[DecalComponent](l, "decal")
	s.aabbDecals = ecs.Register[common.AABB](l, "aabb_decal")
	s.animations = ecs.Register[AnimationComponent](l, "animation")
	s.animationDatas = ecs.Register[AnimationDataComponent](l, "animation_data")
	s.emitters = ecs.Register[EmitterComponent](l, "emitter")
	s.hairs = ecs.Register[HairComponent](l, "hair")
	s.weathers = ecs.Register[WeatherComponent](l, "weather")
	s.sounds = ecs.Register[SoundComponent](l, "sound")
	s.inverseKinematic = ecs.Register[InverseKinematicsComponent](l, "inverse_kinematics")
	s.springs = ecs.Register[SpringComponent](l, "spring")
	s.colliders = ecs.Register[ColliderComponent](l, "collider")
	s.scriptComps = ecs.Register[ScriptComponent](l, "script")
	s.expressions = ecs.Register[ExpressionComponent](l, "expression")
}

func (s *scene) Name() string                   { return s.name }
func (s *scene) SetName(name string)            { s.name = name }
func (s *scene) Active() bool                   { return s.active }
func (s *scene) SetActive(active bool)          { s.active = active }
func (s *scene) Library() *ecs.ComponentLibrary { return s.library }

func (s *scene) Names() *ecs.ComponentManager[NameComponent]           { return s.names }
func (s *scene) Layers() *ecs.ComponentManager[LayerComponent]         { return s.layers }
func (s *scene) Transforms() *ecs.ComponentManager[TransformComponent] { return s.transforms }
func (s *scene) Hierarchy() *ecs.ComponentManager[HierarchyComponent]  { return s.hierarchy }
func (s *scene) Materials() *ecs.ComponentManager[MaterialComponent]   { return s.materials }
func (s *scene) Meshes() *ecs.ComponentManager[MeshComponent]          { return s.meshes }
func (s *scene) Impostors() *ecs.ComponentManager[ImpostorComponent]   { return s.impostors }
func (s *scene) Objects() *ecs.ComponentManager[ObjectComponent]       { return s.objects }
func (s *scene) ObjectAABBs() *ecs.ComponentManager[common.AABB]       { return s.aabbObjects }
func (s *scene) RigidBodies() *ecs.ComponentManager[RigidBodyComponent] {
	return s.rigidbodies
}
func (s *scene) SoftBodies() *ecs.ComponentManager[SoftBodyComponent] { return s.softbodies }
func (s *scene) Armatures() *ecs.ComponentManager[ArmatureComponent]  { return s.armatures }
func (s *scene) Lights() *ecs.ComponentManager[light.Light]           { return s.lights }
func (s *scene) LightAABBs() *ecs.ComponentManager[common.AABB]       { return s.aabbLights }
func (s *scene) Cameras() *ecs.ComponentManager[camera.Camera]        { return s.cameras }
func (s *scene) Probes() *ecs.ComponentManager[EnvironmentProbeComponent] {
	return s.probes
}
func (s *scene) ProbeAABBs() *ecs.ComponentManager[common.AABB]          { return s.aabbProbes }
func (s *scene) Forces() *ecs.ComponentManager[ForceFieldComponent]      { return s.forces }
func (s *scene) Decals() *ecs.ComponentManager[DecalComponent]           { return s.decals }
func (s *scene) DecalAABBs() *ecs.ComponentManager[common.AABB]          { return s.aabbDecals }
func (s *scene) Animations() *ecs.ComponentManager[AnimationComponent]   { return s.animations }
func (s *scene) Emitters() *ecs.ComponentManager[EmitterComponent]       { return s.emitters }
func (s *scene) Hairs() *ecs.ComponentManager[HairComponent]             { return s.hairs }
func (s *scene) Weathers() *ecs.ComponentManager[WeatherComponent]       { return s.weathers }
func (s *scene) Sounds() *ecs.ComponentManager[SoundComponent]           { return s.sounds }
func (s *scene) Springs() *ecs.ComponentManager[SpringComponent]         { return s.springs }
func (s *scene) Colliders() *ecs.ComponentManager[ColliderComponent]     { return s.colliders }
func (s *scene) Scripts() *ecs.ComponentManager[ScriptComponent]         { return s.scriptComps }
func (s *scene) Expressions() *ecs.ComponentManager[ExpressionComponent] { return s.expressions }

func (s *scene) AnimationDatas() *ecs.ComponentManager[AnimationDataComponent] {
	return s.animationDatas
}

func (s *scene) InverseKinematics() *ecs.ComponentManager[InverseKinematicsComponent] {
	return s.inverseKinematic
}

func (s *scene) Camera() *camera.Camera { return &s.cam }

func (s *scene) SetCamera(cam camera.Camera) { s.cam = cam }

func (s *scene) Weather() *WeatherComponent { return &s.weather }

func (s *scene) Bounds() common.AABB { return s.bounds }

func (s *scene) CollidersCPU() []ColliderComponent { return s.collidersCPU }
func (s *scene) CollidersGPU() []ColliderComponent { return s.collidersGPU }

func (s *scene) Ripples() []WaterRipple { return s.ripples }

func (s *scene) PutWaterRipple(pos common.Vec3) {
	s.ripples = append(s.ripples, WaterRipple{
		Position: pos,
		Rotation: s.rng.Float32() * 2 * math32.Pi,
		Scale:    1,
		Opacity:  1,
		Fade:     0.01,
		Growth:   0.02,
	})
}

func (s *scene) InstanceBuffer() *gpu.StructuredBuffer { return s.instanceArena }
func (s *scene) MaterialBuffer() *gpu.StructuredBuffer { return s.materialArena }
func (s *scene) GeometryBuffer() *gpu.StructuredBuffer { return s.geometryArena }
func (s *scene) MeshletBuffer() *gpu.StructuredBuffer  { return s.meshletArena }
func (s *scene) TLASBuffer() *gpu.StructuredBuffer     { return s.tlasArena }
func (s *scene) SceneBuffer() *gpu.StructuredBuffer    { return s.sceneArena }
func (s *scene) LightBuffer() *gpu.StructuredBuffer    { return s.lightArena }
func (s *scene) CameraBuffer() *gpu.StructuredBuffer   { return s.cameraArena }
func (s *scene) ShadowBuffer() *gpu.StructuredBuffer   { return s.shadowArena }

func (s *scene) InstanceCount() int { return s.instanceCount }
func (s *scene) LightCount() int    { return s.lightCount }
func (s *scene) GeometryCount() int { return s.geometryCount }
func (s *scene) MeshletCount() int  { return s.meshletCount }

func (s *scene) ShaderScene() ShaderScene { return s.shaderScene }
func (s *scene) FrameIndex() int          { return s.frameIndex }
func (s *scene) Time() float32            { return s.time }
func (s *scene) QueryHeapIndex() int      { return s.queryHeapIndex }

func (s *scene) SetOcclusionResults(slot int, results []uint64) {
	s.occlusionResults[slot%occlusionQueryRing] = results
}

func (s *scene) LightmapRefreshNeeded() bool { return s.lightmapRefreshNeeded.Load() }
func (s *scene) BVHUpdateRequested() bool    { return s.bvhUpdateRequested }
func (s *scene) Textures() SceneTextures     { return s.textures }

// Clear removes every component and releases the scene's GPU resources.
func (s *scene) Clear() {
	for i := range s.meshes.Len() {
		s.meshes.At(i).DeleteRenderData()
	}
	s.library.Clear()
	s.releaseGPU()
	s.bounds = common.EmptyAABB()
	s.parallelBounds = nil
	s.collidersCPU = nil
	s.collidersGPU = nil
	s.ripples = nil
	s.matrixObjects = nil
	s.matrixObjectsPrev = nil
	s.impostorSlots = [maxImpostorCount]ecs.Entity{}
	s.probeSlots = [envmapCount]ecs.Entity{}
	s.ddgi = ddgiVolume{}
	s.instanceCount, s.materialCount, s.geometryCount, s.meshletCount, s.lightCount = 0, 0, 0, 0, 0
}

func (s *scene) releaseGPU() {
	s.tlasArena.Release()
	if s.impostorBuffer != nil {
		s.impostorBuffer.Release()
		s.impostorBuffer = nil
	}
	s.impostorSize = 0
	for e, t := range s.lightmaps {
		t.Release()
		delete(s.lightmaps, e)
	}
	releaseTexture(&s.textures.SurfelGI[0])
	releaseTexture(&s.textures.SurfelGI[1])
	releaseTexture(&s.textures.DDGIColor[0])
	releaseTexture(&s.textures.DDGIColor[1])
	releaseTexture(&s.textures.DDGIDepth)
}

func releaseTexture(t *gpu.Texture) {
	if *t != nil {
		(*t).Release()
		*t = nil
	}
}

// Merge moves every component of other into s.
func (s *scene) Merge(other Scene) {
	o, ok := other.(*scene)
	if !ok {
		panic("scene: Merge requires a scene created by NewScene")
	}
	s.library.Merge(o.library)
	s.sortHierarchy()
	s.bounds = common.MergeAABB(s.bounds, o.bounds)
	if !s.ddgi.Valid && o.ddgi.Valid {
		s.ddgi = o.ddgi
		s.textures.DDGIColor = o.textures.DDGIColor
		s.textures.DDGIDepth = o.textures.DDGIDepth
		o.textures.DDGIColor = [2]gpu.Texture{}
		o.textures.DDGIDepth = nil
		o.ddgi = ddgiVolume{}
	}
}

// Close releases GPU resources and the scheduler when the scene created it.
func (s *scene) Close() {
	s.Clear()
	s.instanceArena.Release()
	s.materialArena.Release()
	s.geometryArena.Release()
	s.meshletArena.Release()
	s.sceneArena.Release()
	s.lightArena.Release()
	s.cameraArena.Release()
	s.shadowArena.Release()
	releaseTexture(&s.textures.ImpostorDepth)
	releaseTexture(&s.textures.ImpostorArray)
	releaseTexture(&s.textures.EnvMapDepth)
	releaseTexture(&s.textures.EnvMapArray)
	if s.ownsSched {
		s.scheduler.Close()
	}
}
