package slackfs

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// smallest integer encoding, no indefinite-length items. Same payload always
// serializes to identical bytes, which keeps Codec.Encode deterministic.
var encMode cbor.EncMode

// decMode decodes untyped maps as map[string]any.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("slackfs: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("slackfs: CBOR decoder initialization failed: " + err.Error())
	}
}

// Serialize encodes a payload to CBOR.
func Serialize(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Deserialize decodes CBOR data into v.
func Deserialize(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
