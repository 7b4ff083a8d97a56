package jsconsumer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDlqRouter_SubjectAndStreamNameDerivation(t *testing.T) {
	r := NewDlqRouter(nil, nil, "")

	assert.Equal(t, "employee_v1_stream-dlq", r.StreamName("employee_v1_stream"))
	assert.Equal(t, "employee.dlq", r.Subject("employee.v1.42.update"))
}

func TestDlqRouter_CustomSuffix(t *testing.T) {
	r := NewDlqRouter(nil, nil, "-dead")
	assert.Equal(t, "orders-dead", r.StreamName("orders"))
}

func TestDlqPrefix_WidensAcrossSubjectDepth(t *testing.T) {
	assert.Equal(t, "employee", dlqPrefix("employee.v1.42.update"))
	assert.Equal(t, "ping", dlqPrefix("ping"))
}
