package contract

import (
	"context"
	"fmt"
	"strings"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// compileProto compiles a single-file .proto contract. The first top-level
// message describes the payload; field names match by JSON name or proto name.
func compileProto(ctx context.Context, c *Contract) (*compiled, error) {
	fileName := fmt.Sprintf("%s_v%d.proto", strings.ToLower(string(c.Key.Type)), c.Key.Version)

	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protoSource{
			name:    fileName,
			content: string(c.Definition),
		}),
		SourceInfoMode: protocompile.SourceInfoNone,
	}

	files, err := compiler.Compile(ctx, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile proto contract: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files compiled")
	}

	messages := files[0].Messages()
	if messages.Len() == 0 {
		return nil, fmt.Errorf("proto contract must define at least one message")
	}

	return &compiled{key: c.Key, format: FormatProtobuf, message: messages.Get(0)}, nil
}

type protoSource struct {
	name    string
	content string
}

func (s *protoSource) FindFileByPath(path string) (protocompile.SearchResult, error) {
	if path == s.name {
		return protocompile.SearchResult{Source: strings.NewReader(s.content)}, nil
	}
	return protocompile.SearchResult{}, fmt.Errorf("file not found: %s", path)
}

func validateProto(c *compiled, data map[string]interface{}) error {
	errs := checkMessage(c, c.message, "", data)
	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

func checkMessage(c *compiled, md protoreflect.MessageDescriptor, prefix string, data map[string]interface{}) []*ValidationError {
	fields := md.Fields()
	known := make(map[string]protoreflect.FieldDescriptor, fields.Len()*2)
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		known[fd.JSONName()] = fd
		known[string(fd.Name())] = fd
	}

	var errs []*ValidationError
	for name, value := range data {
		fd, ok := known[name]
		if !ok {
			if c.strict {
				errs = append(errs, fieldError(c.key, prefix+name, "unknown field not allowed"))
			}
			continue
		}
		errs = append(errs, checkProtoField(c, fd, prefix+fd.JSONName(), value)...)
	}
	return errs
}

func checkProtoField(c *compiled, fd protoreflect.FieldDescriptor, path string, value interface{}) []*ValidationError {
	if value == nil {
		return nil
	}

	switch {
	case fd.IsList():
		items, ok := value.([]interface{})
		if !ok {
			return []*ValidationError{typeMismatch(c.key, path, "array", value)}
		}
		var errs []*ValidationError
		for i, item := range items {
			errs = append(errs, checkProtoScalar(c, fd, fmt.Sprintf("%s[%d]", path, i), item)...)
		}
		return errs

	case fd.IsMap():
		entries, ok := value.(map[string]interface{})
		if !ok {
			return []*ValidationError{typeMismatch(c.key, path, "object", value)}
		}
		var errs []*ValidationError
		for k, item := range entries {
			errs = append(errs, checkProtoScalar(c, fd.MapValue(), fmt.Sprintf("%s[%q]", path, k), item)...)
		}
		return errs
	}

	return checkProtoScalar(c, fd, path, value)
}

func checkProtoScalar(c *compiled, fd protoreflect.FieldDescriptor, path string, value interface{}) []*ValidationError {
	if value == nil {
		return nil
	}

	mismatch := func(expected string) []*ValidationError {
		return []*ValidationError{typeMismatch(c.key, path, expected, value)}
	}

	switch fd.Kind() {
	case protoreflect.BoolKind:
		if _, ok := value.(bool); !ok {
			return mismatch("bool")
		}

	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		n, ok := toFloat(value)
		if !ok {
			return mismatch("integer")
		}
		if n != float64(int64(n)) {
			return []*ValidationError{fieldError(c.key, path, "expected integer, got float with fractional part")}
		}

	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		n, ok := toFloat(value)
		if !ok || n < 0 {
			return mismatch("unsigned integer")
		}

	case protoreflect.FloatKind, protoreflect.DoubleKind:
		if _, ok := toFloat(value); !ok {
			return mismatch("number")
		}

	case protoreflect.StringKind, protoreflect.BytesKind:
		if _, ok := value.(string); !ok {
			return mismatch("string")
		}

	case protoreflect.EnumKind:
		switch value.(type) {
		case string:
		default:
			if _, ok := toFloat(value); !ok {
				return mismatch("string or integer (enum)")
			}
		}

	case protoreflect.MessageKind:
		nested, ok := value.(map[string]interface{})
		if !ok {
			return mismatch("object")
		}
		return checkMessage(c, fd.Message(), path+".", nested)
	}
	return nil
}
