package sqlite

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
)

const (
	kindIRI     uint8 = 1
	kindLiteral uint8 = 2
)

// term is the stored form of an object value.
type term struct {
	Kind     uint8  `cbor:"1,keyasint"`
	Lexical  string `cbor:"2,keyasint"`
	Datatype string `cbor:"3,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sqlite: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("sqlite: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeValue(v rdfvalue.Value) ([]byte, error) {
	t := term{Kind: kindLiteral, Lexical: v.String(), Datatype: v.Datatype()}
	if _, ok := v.(rdfvalue.URN); ok {
		t = term{Kind: kindIRI, Lexical: v.String()}
	}
	return encMode.Marshal(t)
}

func decodeValue(values *rdfvalue.Registry, data []byte) (rdfvalue.Value, error) {
	var t term
	if err := decMode.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding stored term: %w", err)
	}
	switch t.Kind {
	case kindIRI:
		return rdfvalue.NewURN(t.Lexical), nil
	case kindLiteral:
		return values.Parse(t.Datatype, t.Lexical)
	default:
		return nil, fmt.Errorf("unknown stored term kind %d", t.Kind)
	}
}
