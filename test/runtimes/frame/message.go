// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package frame

import (
	"github.com/ethereum/go-ethereum/rlp"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

// Message is the payload of an envelope sent between frame runtimes.
type Message struct {
	Module string
	Method string
	Body   []byte
}

func (m *Message) String() string { return m.Module + "." + m.Method }

// Encode encodes a message whose body is the RLP encoding of body.
func Encode(module, method string, body interface{}) ([]byte, error) {
	b, err := rlp.EncodeToBytes(body)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("encode %s.%s body: %w", module, method, err)
	}
	b, err = rlp.EncodeToBytes(&Message{Module: module, Method: method, Body: b})
	if err != nil {
		return nil, errors.EncodingError.WithFormat("encode %s.%s: %w", module, method, err)
	}
	return b, nil
}

// Decode decodes a message.
func Decode(payload []byte) (*Message, error) {
	msg := new(Message)
	err := rlp.DecodeBytes(payload, msg)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("decode message: %w", err)
	}
	return msg, nil
}

// DecodeBody decodes the message body into v.
func (m *Message) DecodeBody(v interface{}) error {
	err := rlp.DecodeBytes(m.Body, v)
	if err != nil {
		return errors.EncodingError.WithFormat("decode %v body: %w", m, err)
	}
	return nil
}
