// Package subject implements the subject template grammar: resolving a
// templated pattern (with [controller]/[action]/{version}/{name}
// placeholders) into a concrete subscribe-time subject, and parsing an
// actual inbound subject back into placeholder bindings.
package subject

import (
	"regexp"
	"strings"
)

// placeholderRe matches `{name}` or `{name:kind}`, per the wire grammar in
// the external interfaces design. The "kind" suffix is accepted but not
// otherwise interpreted — it documents the scalar type for ArgKind binding
// in the invoker (endpoint package), it does not change resolution.
var placeholderRe = regexp.MustCompile(`\{(\w+)(?::\w+)?\}`)

const reservedVersionName = "version"

// ControllerName strips the EventController/Controller suffix from a Go
// type name and lowercases it, mirroring the source's "[controller]"
// substitution rule (stripping `EventController`/`Controller`).
func ControllerName(handlerTypeName string) string {
	name := handlerTypeName
	for _, suffix := range []string{"EventController", "Controller"} {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	return strings.ToLower(name)
}

// Resolve substitutes [controller], [action], {version}/{version:apiVersion}
// and any remaining {name} placeholder in pattern, producing a concrete
// subscribe-time subject (with `*` standing in for unresolved
// placeholders). The result is always lowercased.
func Resolve(pattern, controllerName, methodName, version string) string {
	if version == "" {
		version = "1"
	}

	resolved := pattern
	resolved = strings.ReplaceAll(resolved, "[controller]", controllerName)
	resolved = strings.ReplaceAll(resolved, "[action]", methodName)

	resolved = placeholderRe.ReplaceAllStringFunc(resolved, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		if strings.EqualFold(name, reservedVersionName) {
			return version
		}
		return "*"
	})

	return strings.ToLower(resolved)
}

// PlaceholderNames returns the ordered list of {name} placeholders in
// pattern, excluding the reserved `version` placeholder, in the order they
// appear (which is also the order their `*` stand-ins appear after
// Resolve, since [controller]/[action] never introduce wildcards).
func PlaceholderNames(pattern string) []string {
	matches := placeholderRe.FindAllStringSubmatch(pattern, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if strings.EqualFold(name, reservedVersionName) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// ParseSubject splits the resolved pattern and the actual subject by `.`
// and binds each placeholder name (in pattern order) to the subject
// segment occupying the corresponding `*` position. A segment-count
// mismatch returns an empty, non-nil map rather than an error — the
// invoker treats that as "no placeholder bindings", per the boundary
// behavior in the testable properties.
func ParseSubject(pattern, controllerName, methodName, version, actualSubject string) map[string]string {
	resolved := Resolve(pattern, controllerName, methodName, version)
	names := PlaceholderNames(pattern)

	resolvedSegs := strings.Split(resolved, ".")
	actualSegs := strings.Split(strings.ToLower(actualSubject), ".")

	binding := make(map[string]string)
	if len(resolvedSegs) != len(actualSegs) {
		return binding
	}

	nameIdx := 0
	for i, seg := range resolvedSegs {
		if seg != "*" {
			continue
		}
		if nameIdx >= len(names) {
			break
		}
		binding[strings.ToLower(names[nameIdx])] = actualSegs[i]
		nameIdx++
	}
	return binding
}
