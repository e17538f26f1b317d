package serializer

import (
	"fmt"

	"github.com/lk2023060901/jsonhook-go/internal/json"
	"github.com/lk2023060901/jsonhook-go/pkg/util/merr"
)

// JSONSerializer 使用 internal/json（基于 bytedance/sonic）实现 JSON 编解码。
// 错误分别以 merr.ErrSerializeFailed / merr.ErrDeserializeFailed 标记，原始错误保留为 Cause。
type JSONSerializer struct{}

// 编译期断言：确保 JSONSerializer 实现了 Serializer 接口。
var _ Serializer = (*JSONSerializer)(nil)

func (JSONSerializer) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, merr.WrapErrSerializeFailed(err, fmt.Sprintf("%T", v))
	}
	return data, nil
}

func (JSONSerializer) Unmarshal(data []byte, v any) error {
	return merr.WrapErrDeserializeFailed(json.Unmarshal(data, v), fmt.Sprintf("%T", v))
}
