// Package jsonhook 允许调用方把自定义的序列化函数挂到 jsoniter 的编码流程上。
//
// 调用方提供一个两级函数 SerializeFunc：给定当前的 *jsoniter.Stream，返回一个
// 消费具体值的 Consumer。每当 jsoniter 需要输出已注册类型的值时，Adapter
// 先用当前 stream 求出 Consumer，再把值交给它，由 Consumer 直接写入 stream。
package jsonhook

import (
	"reflect"

	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"

	"github.com/lk2023060901/jsonhook-go/pkg/util/merr"
)

// Consumer 消费一个待输出的值，并直接写入生成它的 stream。
type Consumer func(v any) error

// SerializeFunc 给定当前 stream，返回负责输出单个值的 Consumer。
type SerializeFunc func(stream *jsoniter.Stream) Consumer

// Provider 描述一次序列化回调所处的宿主上下文。
// Adapter 本身不读取它，仅原样交给调用方。
type Provider struct {
	// API 为 stream 所属的 jsoniter 配置。
	API jsoniter.API
	// Type 为当前正在输出的 Go 类型。
	Type reflect2.Type
}

// TypeName 返回 Provider 中类型的可读名称。
func (p Provider) TypeName() string {
	if p.Type == nil {
		return "<nil>"
	}
	return p.Type.String()
}

// Adapter 持有一个 SerializeFunc，零值表示尚未配置。
//
// Adapter 不加锁：Configure 必须在 Adapter 被并发的写入方看到之前完成。
// 已配置的 Adapter 可被多个 stream 并发调用，前提是 Consumer 本身并发安全。
type Adapter struct {
	fn SerializeFunc
}

// NewAdapter 创建并配置一个 Adapter。
func NewAdapter(fn SerializeFunc) *Adapter {
	a := &Adapter{}
	a.Configure(fn)
	return a
}

// Configure 保存 fn，覆盖之前的配置。不做校验。
func (a *Adapter) Configure(fn SerializeFunc) {
	a.fn = fn
}

// Configured 返回 Adapter 是否持有非 nil 的 SerializeFunc。
func (a *Adapter) Configured() bool {
	return a != nil && a.fn != nil
}

// Serialize 将 v 写入 stream。
//
// 每次调用恰好求值一次 fn(stream)，并把 v 交给得到的 Consumer 一次。
// Consumer 返回的错误原样返回，不做包装。
// 未配置时（或 fn 返回 nil Consumer）返回匹配 merr.ErrAdapterUnconfigured 的错误，
// 此时不会写入任何内容。
func (a *Adapter) Serialize(v any, stream *jsoniter.Stream, p Provider) error {
	if !a.Configured() {
		return merr.WrapErrAdapterUnconfigured(typeNameOf(v, p))
	}
	consume := a.fn(stream)
	if consume == nil {
		return merr.WrapErrAdapterUnconfigured(typeNameOf(v, p), "serialize func returned nil consumer")
	}
	return consume(v)
}

func typeNameOf(v any, p Provider) string {
	if p.Type != nil {
		return p.Type.String()
	}
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
