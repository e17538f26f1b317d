// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// 叶子错误统一在这里定义。
// WARN: 新增错误前请先确认下面已有的错误是否可以复用。
// 命名：Err + 相关前缀 + 错误名
var (
	// Adapter 相关
	// 在 Configure 之前调用 Serialize。
	ErrAdapterUnconfigured = newHookError("serializer adapter is not configured", 100, false, WithErrorType(InputError))

	// Module 相关
	ErrTypeAlreadyRegistered = newHookError("type already registered", 200, false, WithErrorType(InputError))
	ErrModuleFrozen          = newHookError("module already frozen", 201, false)

	// Parameter 相关
	ErrParameterInvalid = newHookError("invalid parameter", 1100, false, WithErrorType(InputError))
	ErrParameterMissing = newHookError("missing parameter", 1101, false, WithErrorType(InputError))

	// Serialize 相关，仅供字节级序列化层使用，Adapter 自身从不包装错误。
	ErrSerializeFailed   = newHookError("serialize failed", 1200, false)
	ErrDeserializeFailed = newHookError("deserialize failed", 1201, false)

	// IO 相关
	ErrIoFailed = newHookError("IO failed", 1300, true)

	// Do NOT export this,
	// 仅用于把未知错误转换为 hookError。
	errUnexpected = newHookError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*hookError)

func WithErrorType(etype ErrorType) errorOption {
	return func(err *hookError) {
		err.errType = etype
	}
}

type hookError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newHookError(msg string, code int32, retriable bool, options ...errorOption) hookError {
	err := hookError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e hookError) code() int32 {
	return e.errCode
}

func (e hookError) Error() string {
	return e.msg
}

func (e hookError) Detail() string {
	return e.detail
}

func (e hookError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(hookError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// multiErrors 的 cause 定义为最后一个错误
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
