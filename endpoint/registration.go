package endpoint

// Cancellation builds the ArgKind for a context.Context / cancellation
// parameter.
func Cancellation() ArgKind { return ArgKind{Cancellation: true} }

// Placeholder builds the ArgKind for a parameter whose name matches a
// subject placeholder, converted to the given scalar kind
// (int/long/bool/guid/double/decimal/string).
func Placeholder(name, kind string) ArgKind {
	return ArgKind{PlaceholderName: name, PlaceholderKind: kind}
}

// Body builds the ArgKind for the deserialized request payload.
func Body() ArgKind { return ArgKind{RequestBody: true} }
