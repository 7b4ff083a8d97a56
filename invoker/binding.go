package invoker

import (
	"strconv"

	"github.com/google/uuid"
)

// ConvertScalar converts the raw subject segment raw to the scalar kind
// named by kind (string/int/long/bool/guid/double/decimal), mirroring the
// source's dynamic parameter-name-based conversion — except, per the
// Design Notes' typed-binding redesign, the kind is known up front from the
// endpoint's ArgKind rather than inferred from a parameter name at
// dispatch time.
//
// A value that fails to parse as its declared kind returns the kind's zero
// value rather than an error, matching the boundary behavior in the
// testable properties ("non-parseable placeholder segment binds to the
// type's zero value, it does not abort dispatch").
func ConvertScalar(raw, kind string) any {
	switch kind {
	case "int":
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return int32(0)
		}
		return int32(v)
	case "long":
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return int64(0)
		}
		return v
	case "bool":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return false
		}
		return v
	case "guid":
		v, err := uuid.Parse(raw)
		if err != nil {
			return uuid.UUID{}
		}
		return v
	case "double":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return float64(0)
		}
		return v
	case "decimal":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return float64(0)
		}
		return v
	default: // "string" and anything unrecognized passes through verbatim
		return raw
	}
}
