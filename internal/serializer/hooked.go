package serializer

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/jsonhook-go/pkg/jsonhook"
	"github.com/lk2023060901/jsonhook-go/pkg/util/merr"
)

// HookedSerializer 基于 jsonhook.Module 冻结出的 jsoniter.API 编解码。
//
// 自定义序列化逻辑返回的错误原样透出；解码不经过任何钩子。
type HookedSerializer struct {
	api jsoniter.API
}

var _ Serializer = (*HookedSerializer)(nil)

// NewHookedSerializer 冻结 m 并返回对应的 HookedSerializer。
func NewHookedSerializer(m *jsonhook.Module, cfg jsonhook.Config) (*HookedSerializer, error) {
	if m == nil {
		return nil, merr.WrapErrParameterMissing("module")
	}
	api, err := m.Froze(cfg)
	if err != nil {
		return nil, err
	}
	return &HookedSerializer{api: api}, nil
}

// API 返回底层 jsoniter.API。
func (s *HookedSerializer) API() jsoniter.API {
	return s.api
}

func (s *HookedSerializer) Marshal(v any) ([]byte, error) {
	return s.api.Marshal(v)
}

func (s *HookedSerializer) Unmarshal(data []byte, v any) error {
	return s.api.Unmarshal(data, v)
}

// MarshalTo 将 v 编码后直接写入 w。
// 编码失败时不会向 w 写入任何内容。
func (s *HookedSerializer) MarshalTo(w io.Writer, v any) error {
	stream := s.api.BorrowStream(nil)
	defer s.api.ReturnStream(stream)

	stream.WriteVal(v)
	if stream.Error != nil {
		return stream.Error
	}
	if _, err := w.Write(stream.Buffer()); err != nil {
		return merr.WrapErrIoFailed("writer", err)
	}
	return nil
}
