package jsonhook

import (
	"reflect"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"
	"go.uber.org/zap"

	"github.com/lk2023060901/jsonhook-go/pkg/log"
	"github.com/lk2023060901/jsonhook-go/pkg/metrics"
	"github.com/lk2023060901/jsonhook-go/pkg/util/merr"
)

// EmptyFunc 判断一个值在 omitempty 下是否视为空。
type EmptyFunc func(v any) bool

// encoder 把一个已注册类型的 jsoniter 编码回调转发给 Adapter。
type encoder struct {
	typ      reflect2.Type
	adapter  *Adapter
	isEmpty  EmptyFunc
	logger   *log.MLogger
	typeName string
}

var _ jsoniter.ValEncoder = (*encoder)(nil)

func newEncoder(typ reflect2.Type, reg *registration, logger *log.MLogger) *encoder {
	return &encoder{
		typ:      typ,
		adapter:  reg.adapter,
		isEmpty:  reg.isEmpty,
		logger:   logger,
		typeName: typ.String(),
	}
}

// IsEmpty 实现 jsoniter.ValEncoder。
func (e *encoder) IsEmpty(ptr unsafe.Pointer) bool {
	v := e.typ.UnsafeIndirect(ptr)
	if isNil(v) {
		return true
	}
	if e.isEmpty != nil {
		return e.isEmpty(v)
	}
	return false
}

// Encode 实现 jsoniter.ValEncoder。
//
// nil 指针、map、slice 与接口直接输出 null，不调用 Consumer。
// 错误写入 stream.Error（已有错误时保留先发生的那个），由 jsoniter 从 Marshal/Encode 返回。
func (e *encoder) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	v := e.typ.UnsafeIndirect(ptr)
	if isNil(v) {
		stream.WriteNil()
		return
	}

	api, _ := stream.Pool().(jsoniter.API)
	start := time.Now()
	err := e.adapter.Serialize(v, stream, Provider{API: api, Type: e.typ})
	switch {
	case err == nil:
		metrics.ObserveSerialize(e.typeName, metrics.SuccessLabel, start)
		return
	case errors.Is(err, merr.ErrAdapterUnconfigured):
		metrics.ObserveSerialize(e.typeName, metrics.UnconfiguredLabel, start)
		e.logger.RatedWarn(1, "serializer adapter used before configure", zap.String("type", e.typeName))
	default:
		metrics.ObserveSerialize(e.typeName, metrics.FailLabel, start)
		e.logger.RatedDebug(1, "custom serializer failed", zap.String("type", e.typeName), zap.Error(err))
	}
	if stream.Error == nil {
		stream.Error = err
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
