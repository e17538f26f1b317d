package jsonhook

import (
	"reflect"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"
	"go.uber.org/zap"

	"github.com/lk2023060901/jsonhook-go/pkg/log"
	"github.com/lk2023060901/jsonhook-go/pkg/metrics"
	"github.com/lk2023060901/jsonhook-go/pkg/util/merr"
)

const (
	encoderRateGroup       = "jsonhook.encoder"
	encoderCreditPerSecond = 1.0
	encoderMaxBalance      = 60.0
)

type registration struct {
	typ     reflect.Type
	adapter *Adapter
	isEmpty EmptyFunc
}

// RegisterOption 用于调整单个类型的注册行为。
type RegisterOption func(reg *registration)

// WithEmptyFunc 设置 omitempty 下的判空逻辑。未设置时只有 nil 视为空。
func WithEmptyFunc(fn EmptyFunc) RegisterOption {
	return func(reg *registration) {
		reg.isEmpty = fn
	}
}

// Module 是一组“Go 类型 -> Adapter”的绑定，可以作为 jsoniter.Extension 安装到任意 API 上。
//
// 匹配规则：
//   - 先按具体类型精确匹配；
//   - 再按注册顺序匹配接口类型，任何实现了该接口的具体类型都会命中；
//   - 指针类型的元素类型已精确注册时，交由 jsoniter 解引用后再匹配元素类型。
//
// 匿名嵌入的结构体字段会被 jsoniter 展开到外层结构体，不会命中该结构体类型的注册。
// 自定义序列化优先于类型自身的 MarshalJSON。
// jsoniter 会按 API 缓存编码器，因此类型需要在第一次编码前注册。
type Module struct {
	log.Binder

	name string

	mu     sync.RWMutex
	exact  map[reflect.Type]*registration
	ifaces []*registration
	order  []reflect.Type
	frozen bool
}

// NewModule 创建一个空的 Module。
func NewModule(name string) *Module {
	return &Module{
		name:  name,
		exact: make(map[reflect.Type]*registration),
	}
}

// Name 返回 Module 名称。
func (m *Module) Name() string {
	return m.name
}

// Register 将 Adapter 绑定到类型 T 上。
func Register[T any](m *Module, a *Adapter, opts ...RegisterOption) error {
	return m.RegisterType(reflect.TypeOf((*T)(nil)).Elem(), a, opts...)
}

// RegisterFunc 为类型 T 创建一个以 fn 配置的 Adapter 并完成注册，返回该 Adapter。
func RegisterFunc[T any](m *Module, fn SerializeFunc, opts ...RegisterOption) (*Adapter, error) {
	a := NewAdapter(fn)
	if err := Register[T](m, a, opts...); err != nil {
		return nil, err
	}
	return a, nil
}

// RegisterType 是 Register 的非泛型版本。
func (m *Module) RegisterType(typ reflect.Type, a *Adapter, opts ...RegisterOption) error {
	if typ == nil {
		return merr.WrapErrParameterMissing("type")
	}
	if a == nil {
		return merr.WrapErrParameterInvalidMsg("adapter for %s is nil", typ)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return merr.WrapErrModuleFrozen(m.name, typ.String())
	}
	if m.registeredLocked(typ) {
		return merr.WrapErrTypeAlreadyRegistered(m.name, typ.String())
	}

	reg := &registration{typ: typ, adapter: a}
	for _, opt := range opts {
		opt(reg)
	}
	if typ.Kind() == reflect.Interface {
		m.ifaces = append(m.ifaces, reg)
	} else {
		m.exact[typ] = reg
	}
	m.order = append(m.order, typ)

	m.Logger().Debug("custom serializer registered",
		log.FieldModule(m.name),
		log.FieldType(typ),
		zap.Bool("interface", typ.Kind() == reflect.Interface))
	return nil
}

func (m *Module) registeredLocked(typ reflect.Type) bool {
	if _, ok := m.exact[typ]; ok {
		return true
	}
	for _, reg := range m.ifaces {
		if reg.typ == typ {
			return true
		}
	}
	return false
}

// Types 按注册顺序返回所有已注册类型。
func (m *Module) Types() []reflect.Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]reflect.Type, len(m.order))
	copy(out, m.order)
	return out
}

// Lookup 返回 typ 命中的 Adapter。
func (m *Module) Lookup(typ reflect.Type) (*Adapter, bool) {
	reg, ok := m.lookup(typ)
	if !ok {
		return nil, false
	}
	return reg.adapter, true
}

func (m *Module) lookup(typ reflect.Type) (*registration, bool) {
	if typ == nil || typ.Kind() == reflect.Interface {
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if reg, ok := m.exact[typ]; ok {
		return reg, true
	}
	if typ.Kind() == reflect.Ptr {
		if _, ok := m.exact[typ.Elem()]; ok {
			return nil, false
		}
	}
	for _, reg := range m.ifaces {
		if typ.Implements(reg.typ) {
			return reg, true
		}
	}
	return nil, false
}

// Frozen 返回 Module 是否已通过 Froze 生成过 API。
func (m *Module) Frozen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frozen
}

// Extension 返回可安装到任意 jsoniter.API 上的扩展。
// 与 Froze 不同，它不会冻结 Module。
func (m *Module) Extension() jsoniter.Extension {
	return &extension{module: m}
}

// Froze 根据 cfg 构造一个新的 jsoniter.API，安装本 Module 的扩展，并冻结 Module。
// 冻结后继续注册会返回 merr.ErrModuleFrozen。
func (m *Module) Froze(cfg Config) (jsoniter.API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	api := cfg.jsoniterConfig().Froze()
	api.RegisterExtension(m.Extension())

	m.mu.Lock()
	m.frozen = true
	count := len(m.order)
	m.mu.Unlock()

	metrics.RegisteredTypes.WithLabelValues(m.name).Set(float64(count))
	m.Logger().Info("json module frozen", log.FieldModule(m.name), zap.Int("types", count))
	return api, nil
}

func (m *Module) encoderLogger() *log.MLogger {
	return m.Logger().
		With(log.FieldModule(m.name), log.FieldComponent("encoder")).
		WithRateGroup(encoderRateGroup, encoderCreditPerSecond, encoderMaxBalance)
}

// extension 把 Module 接入 jsoniter 的编码器创建流程。
type extension struct {
	jsoniter.DummyExtension
	module *Module
}

// CreateEncoder 实现 jsoniter.Extension。未命中时返回 nil，由 jsoniter 继续查找。
func (e *extension) CreateEncoder(typ reflect2.Type) jsoniter.ValEncoder {
	reg, ok := e.module.lookup(typ.Type1())
	if !ok {
		return nil
	}
	return newEncoder(typ, reg, e.module.encoderLogger())
}
