package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

// DefaultMaxDescriptorSets is used when a pool config leaves MaxSets at zero.
const DefaultMaxDescriptorSets uint32 = 1000

var (
	ErrDuplicateBinding = errors.New("binding already in use")
	ErrUnknownBinding   = errors.New("layout does not contain binding")
)

/**
 * @brief A descriptor set layout together with the bindings it was built
 * from, so writers can validate against it.
 */
type DescriptorSetLayout struct {
	device   Device
	Handle   vk.DescriptorSetLayout
	bindings map[uint32]vk.DescriptorSetLayoutBinding
}

// LayoutBinding describes count descriptors of one type at binding.
func LayoutBinding(binding uint32, descriptorType vk.DescriptorType, stages vk.ShaderStageFlags, count uint32) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  descriptorType,
		DescriptorCount: count,
		StageFlags:      stages,
	}
}

// NewDescriptorSetLayout fails with ErrDuplicateBinding when two bindings
// share a slot.
func NewDescriptorSetLayout(device Device, bindings ...vk.DescriptorSetLayoutBinding) (*DescriptorSetLayout, error) {
	byIndex := make(map[uint32]vk.DescriptorSetLayoutBinding, len(bindings))
	for _, b := range bindings {
		if _, exists := byIndex[b.Binding]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateBinding, b.Binding)
		}
		byIndex[b.Binding] = b
	}

	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    append([]vk.DescriptorSetLayoutBinding(nil), bindings...),
	}
	handle, err := device.CreateDescriptorSetLayout(&info)
	if err != nil {
		err = fmt.Errorf("failed to create descriptor set layout: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	return &DescriptorSetLayout{device: device, Handle: handle, bindings: byIndex}, nil
}

func (l *DescriptorSetLayout) Binding(binding uint32) (vk.DescriptorSetLayoutBinding, bool) {
	b, ok := l.bindings[binding]
	return b, ok
}

func (l *DescriptorSetLayout) Destroy() {
	if l.Handle != nil {
		l.device.DestroyDescriptorSetLayout(l.Handle)
		l.Handle = nil
	}
}

type DescriptorPoolConfig struct {
	MaxSets   uint32
	Flags     vk.DescriptorPoolCreateFlags
	PoolSizes []vk.DescriptorPoolSize
}

type DescriptorPool struct {
	device Device
	Handle vk.DescriptorPool
}

func NewDescriptorPool(device Device, config DescriptorPoolConfig) (*DescriptorPool, error) {
	maxSets := config.MaxSets
	if maxSets == 0 {
		maxSets = DefaultMaxDescriptorSets
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         config.Flags,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(config.PoolSizes)),
		PPoolSizes:    append([]vk.DescriptorPoolSize(nil), config.PoolSizes...),
	}
	handle, err := device.CreateDescriptorPool(&info)
	if err != nil {
		err = fmt.Errorf("failed to create descriptor pool: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	return &DescriptorPool{device: device, Handle: handle}, nil
}

// AllocateDescriptor allocates one set. An exhausted or fragmented pool is
// reported as ok == false with a nil error so the caller can fall back to a
// fresh pool; any other failure is an error.
func (p *DescriptorPool) AllocateDescriptor(layout *DescriptorSetLayout) (vk.DescriptorSet, bool, error) {
	set, res := p.device.AllocateDescriptorSet(p.Handle, layout.Handle)
	switch res {
	case vk.Success:
		return set, true, nil
	case vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
		core.LogWarn("descriptor pool exhausted: %s", VulkanResultString(res, false))
		return nil, false, nil
	default:
		err := resultError("vkAllocateDescriptorSets", res)
		core.LogError(err.Error())
		return nil, false, err
	}
}

// FreeDescriptors requires the pool to have been created with the free
// descriptor set flag.
func (p *DescriptorPool) FreeDescriptors(sets ...vk.DescriptorSet) error {
	if len(sets) == 0 {
		return nil
	}
	return p.device.FreeDescriptorSets(p.Handle, sets)
}

func (p *DescriptorPool) ResetPool() error {
	return p.device.ResetDescriptorPool(p.Handle)
}

func (p *DescriptorPool) Destroy() {
	if p.Handle != nil {
		p.device.DestroyDescriptorPool(p.Handle)
		p.Handle = nil
	}
}

// DescriptorWriter collects buffer and image writes for one set. The first
// invalid write is kept and reported by Build or Overwrite.
type DescriptorWriter struct {
	layout *DescriptorSetLayout
	pool   *DescriptorPool
	writes []vk.WriteDescriptorSet
	err    error
}

func NewDescriptorWriter(layout *DescriptorSetLayout, pool *DescriptorPool) *DescriptorWriter {
	return &DescriptorWriter{layout: layout, pool: pool}
}

func (w *DescriptorWriter) WriteBuffer(binding uint32, info vk.DescriptorBufferInfo) *DescriptorWriter {
	description, ok := w.singleBinding(binding)
	if !ok {
		return w
	}
	w.writes = append(w.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  description.DescriptorType,
		PBufferInfo:     []vk.DescriptorBufferInfo{info},
	})
	return w
}

func (w *DescriptorWriter) WriteImage(binding uint32, info vk.DescriptorImageInfo) *DescriptorWriter {
	description, ok := w.singleBinding(binding)
	if !ok {
		return w
	}
	w.writes = append(w.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  description.DescriptorType,
		PImageInfo:      []vk.DescriptorImageInfo{info},
	})
	return w
}

func (w *DescriptorWriter) singleBinding(binding uint32) (vk.DescriptorSetLayoutBinding, bool) {
	if w.err != nil {
		return vk.DescriptorSetLayoutBinding{}, false
	}
	description, ok := w.layout.Binding(binding)
	if !ok {
		w.err = fmt.Errorf("%w: %d", ErrUnknownBinding, binding)
		return description, false
	}
	if description.DescriptorCount != 1 {
		w.err = fmt.Errorf("binding %d expects %d descriptors, single write given", binding, description.DescriptorCount)
		return description, false
	}
	return description, true
}

// Build allocates a set from the pool and applies the writes. ok is false when
// the pool is exhausted.
func (w *DescriptorWriter) Build() (vk.DescriptorSet, bool, error) {
	if w.err != nil {
		return nil, false, w.err
	}
	set, ok, err := w.pool.AllocateDescriptor(w.layout)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := w.Overwrite(set); err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// Overwrite applies the collected writes to an existing set.
func (w *DescriptorWriter) Overwrite(set vk.DescriptorSet) error {
	if w.err != nil {
		return w.err
	}
	for i := range w.writes {
		w.writes[i].DstSet = set
	}
	w.pool.device.UpdateDescriptorSets(w.writes)
	return nil
}
