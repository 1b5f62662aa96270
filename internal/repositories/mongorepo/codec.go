package mongorepo

import (
	"fmt"
	"reflect"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

var uuidType = reflect.TypeOf(uuid.UUID{})

// newRegistry stores uuid.UUID as BSON binary subtype 4 instead of the
// default array of sixteen integers.
func newRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(uuidType, bsoncodec.ValueEncoderFunc(encodeUUID))
	reg.RegisterTypeDecoder(uuidType, bsoncodec.ValueDecoderFunc(decodeUUID))
	return reg
}

func encodeUUID(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != uuidType {
		return bsoncodec.ValueEncoderError{Name: "encodeUUID", Types: []reflect.Type{uuidType}, Received: val}
	}
	id := val.Interface().(uuid.UUID)
	return vw.WriteBinaryWithSubtype(id.Bytes(), bsontype.BinaryUUID)
}

func decodeUUID(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != uuidType {
		return bsoncodec.ValueDecoderError{Name: "decodeUUID", Types: []reflect.Type{uuidType}, Received: val}
	}

	switch vr.Type() {
	case bsontype.Binary:
		data, _, err := vr.ReadBinary()
		if err != nil {
			return err
		}
		id, err := uuid.FromBytes(data)
		if err != nil {
			return err
		}
		val.Set(reflect.ValueOf(id))
		return nil
	case bsontype.Null:
		val.Set(reflect.Zero(uuidType))
		return vr.ReadNull()
	default:
		return fmt.Errorf("cannot decode %v into uuid.UUID", vr.Type())
	}
}
