package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsFingerprintOrderIndependent(t *testing.T) {
	a := ParamsFingerprint([]string{"multiple_choice", "true_false"}, "easy", "active_recall")
	b := ParamsFingerprint([]string{"true_false", "multiple_choice"}, "easy", "active_recall")
	assert.Equal(t, a, b)
}

func TestParamsFingerprintNormalizesCaseAndSpace(t *testing.T) {
	a := ParamsFingerprint([]string{" Multiple_Choice ", "TRUE_FALSE"}, "Easy", " Active_Recall")
	b := ParamsFingerprint([]string{"multiple_choice", "true_false"}, "easy", "active_recall")
	assert.Equal(t, a, b)
}

func TestParamsFingerprintSensitiveToInputs(t *testing.T) {
	base := ParamsFingerprint([]string{"multiple_choice"}, "easy", "active_recall")

	assert.NotEqual(t, base, ParamsFingerprint([]string{"true_false"}, "easy", "active_recall"))
	assert.NotEqual(t, base, ParamsFingerprint([]string{"multiple_choice"}, "hard", "active_recall"))
	assert.NotEqual(t, base, ParamsFingerprint([]string{"multiple_choice"}, "easy", "pomodoro"))
}

func TestParamsFingerprintIgnoresEmptyTypes(t *testing.T) {
	a := ParamsFingerprint([]string{"multiple_choice", "", "  "}, "easy", "general")
	b := ParamsFingerprint([]string{"multiple_choice"}, "easy", "general")
	assert.Equal(t, a, b)
}

func TestContentFingerprintLength(t *testing.T) {
	fp := ContentFingerprint("Mens rea means guilty mind.")
	assert.Len(t, fp, 16)

	assert.Equal(t, fp, ContentFingerprint("Mens rea means guilty mind."))
	assert.NotEqual(t, fp, ContentFingerprint("Actus reus means guilty act."))
}
