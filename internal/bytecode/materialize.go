package bytecode

import (
	"fmt"

	"github.com/smoynes/idio/internal/container"
	"github.com/smoynes/idio/internal/gc"
	"github.com/smoynes/idio/internal/value"
)

// Materialize allocates every constant in img's pool as a live heap Value, interning symbols and
// keywords through in so they remain `eq?` to any other occurrence of the same name already
// loaded. The result is indexed exactly like img.Constants; compiled code's CONSTANT operand is an
// index into this slice.
func Materialize(h *gc.Heap, in *container.Interner, img *Image) ([]value.Value, error) {
	out := make([]value.Value, len(img.Constants))

	for i, c := range img.Constants {
		switch c.Kind {
		case ConstFixnum:
			if !value.InFixnumRange(c.Fixnum) {
				return nil, fmt.Errorf("bytecode: constant %d: %d out of fixnum range", i, c.Fixnum)
			}

			out[i] = value.Fixnum(c.Fixnum)

		case ConstSymbol:
			out[i] = in.Intern(c.Text)

		case ConstKeyword:
			out[i] = in.InternKeyword(c.Text)

		case ConstString:
			out[i] = container.NewStringFromUTF8(h, []byte(c.Text))

		case ConstBoolean:
			out[i] = value.Boolean(c.Boolean)

		case ConstNil:
			out[i] = value.Nil

		default:
			return nil, fmt.Errorf("bytecode: constant %d: unknown kind %s", i, c.Kind)
		}
	}

	return out, nil
}
