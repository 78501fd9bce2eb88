// cpu_test.go - 宿主平台探测测试

package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSupportReason 测试探测结果自洽
func TestSupportReason(t *testing.T) {
	reason := SupportReason()
	assert.Equal(t, reason == "", IsSupported())

	if reason != "" {
		t.Logf("native code generation unavailable: %s", reason)
	}
}
