package subject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerName_StripsKnownSuffixes(t *testing.T) {
	assert.Equal(t, "employee", ControllerName("EmployeeEventController"))
	assert.Equal(t, "employee", ControllerName("EmployeeController"))
	assert.Equal(t, "widget", ControllerName("Widget"))
}

func TestResolve_EmployeeGetExample(t *testing.T) {
	resolved := Resolve("[controller].v{version:apiVersion}.{id}.get", "employee", "GetEmployee", "1")
	assert.Equal(t, "employee.v1.*.get", resolved)
}

func TestResolve_MissingVersionDefaultsToOne(t *testing.T) {
	resolved := Resolve("[controller].v{version}.ping", "employee", "Ping", "")
	assert.Equal(t, "employee.v1.ping", resolved)
}

func TestPlaceholderNames_ExcludesVersion(t *testing.T) {
	names := PlaceholderNames("[controller].v{version:apiVersion}.{id}.{subId}.get")
	assert.Equal(t, []string{"id", "subId"}, names)
}

func TestParseSubject_EmployeeGetExample(t *testing.T) {
	binding := ParseSubject("[controller].v{version:apiVersion}.{id}.get", "employee", "GetEmployee", "1", "employee.v1.123.get")
	require.Equal(t, map[string]string{"id": "123"}, binding)
}

func TestParseSubject_SegmentCountMismatchReturnsEmptyBinding(t *testing.T) {
	binding := ParseSubject("[controller].v{version}.{id}.get", "employee", "GetEmployee", "1", "employee.v1.get")
	assert.Empty(t, binding)
}

func TestParseSubject_MultiplePlaceholdersInOrder(t *testing.T) {
	binding := ParseSubject("[controller].{orgId}.{id}.update", "employee", "Update", "1", "employee.ORG1.42.update")
	assert.Equal(t, map[string]string{"orgid": "org1", "id": "42"}, binding)
}

func TestResolve_IsLowercased(t *testing.T) {
	resolved := Resolve("[controller].v{version}.get", "Employee", "Get", "1")
	assert.Equal(t, "employee.v1.get", resolved)
}
