package natsio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectForKey__Appends_Key_As_Token(t *testing.T) {
	subject := subjectForKey("anomalyd.v1.anomalies", "DEUTDEFF941")
	assert.Equal(t, "anomalyd.v1.anomalies.DEUTDEFF941", subject)
}

func TestSubjectForKey__Replaces_Reserved_Characters(t *testing.T) {
	subject := subjectForKey("anomalyd.v1.anomalies", "bank.one *>")
	assert.Equal(t, "anomalyd.v1.anomalies.bank-one---", subject)
}

func TestSubjectForKey__Empty_Key_Becomes_Unknown(t *testing.T) {
	subject := subjectForKey("anomalyd.v1.anomalies", "")
	assert.Equal(t, "anomalyd.v1.anomalies.unknown", subject)
}
