// Package document holds the untyped configuration tree fetched from a
// subscription and the tolerant accessors used to walk it.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/sagernet/sing/common/json"
	"github.com/sagernet/sing/common/x/linkedhashmap"
)

// Object 是保留键顺序的 JSON 对象
// 值只会是 *Object、[]any、string、JSON number、bool 或 nil
type Object struct {
	linkedhashmap.Map[string, any]
}

var ErrNotObject = errors.New("document root is not a JSON object")

func NewObject() *Object {
	return &Object{}
}

// With 追加或覆盖一个字段，返回自身便于链式构造
func (o *Object) With(key string, value any) *Object {
	o.Put(key, value)
	return o
}

// Decode 解析 JSON 文本，根节点必须是对象
// 数字保留原始文本，避免整数被转成 float64
func Decode(content []byte) (*Object, error) {
	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()

	root, err := decodeValue(decoder)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid json: unexpected data after top-level value")
	}

	obj, ok := root.(*Object)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

func decodeValue(decoder *json.Decoder) (any, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := token.(json.Delim)
	if !ok {
		return token, nil
	}

	switch delim {
	case '{':
		obj := NewObject()
		for decoder.More() {
			keyToken, err := decoder.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyToken.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyToken)
			}
			value, err := decodeValue(decoder)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			obj.Put(key, value)
		}
		if _, err := decoder.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		list := []any{}
		for decoder.More() {
			item, err := decodeValue(decoder)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		if _, err := decoder.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// MarshalJSON 按插入顺序输出字段，& < > 不转义
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range o.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeValue(&buf, entry.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeValue(&buf, entry.Value); err != nil {
			return nil, fmt.Errorf("encode %s: %w", entry.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, value any) error {
	var tmp bytes.Buffer
	encoder := json.NewEncoder(&tmp)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// Lookup 沿 path 逐级查找嵌套对象，任一级缺失或不是对象都返回 false
func (o *Object) Lookup(path ...string) (*Object, bool) {
	current := o
	for _, key := range path {
		if current == nil {
			return nil, false
		}
		value, _ := current.Get(key)
		next, ok := value.(*Object)
		if !ok || next == nil {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}

func (o *Object) List(key string) ([]any, bool) {
	if o == nil {
		return nil, false
	}
	value, _ := o.Get(key)
	v, ok := value.([]any)
	return v, ok
}

func (o *Object) String(key string) (string, bool) {
	if o == nil {
		return "", false
	}
	value, _ := o.Get(key)
	v, ok := value.(string)
	return v, ok
}
