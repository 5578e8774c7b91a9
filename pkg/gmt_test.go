package emtf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGMTPt(t *testing.T) {
	assert.Equal(t, 3, GMTPt(1.4, 9))
	assert.Equal(t, 12, GMTPt(5.6, 9))
	assert.Equal(t, 511, GMTPt(1400, 9))
	assert.Equal(t, 255, GMTPt(1400, 8))

	assert.Equal(t, 5.5, DecodeGMTPt(12))
	assert.Equal(t, 255.0, DecodeGMTPt(511))
	assert.Zero(t, DecodeGMTPt(0))
}

func TestGMTPhi(t *testing.T) {
	assert.Equal(t, 24, GMTPhi(2221, false))
	assert.Equal(t, 23, GMTPhi(2221, true))
	assert.Equal(t, -35, GMTPhi(0, false))
}

func TestGMTEta(t *testing.T) {
	assert.Equal(t, 131, GMTEta(65, 1))
	assert.Equal(t, ^131, GMTEta(65, 2))
	assert.Greater(t, GMTEta(10, 1), GMTEta(100, 1))
}

func TestGMTQuality(t *testing.T) {
	assert.Equal(t, 15, GMTQuality(15))
	assert.Equal(t, 7, GMTQuality(12))
	assert.Equal(t, 4, GMTQuality(3))
	assert.Zero(t, GMTQuality(8))
	assert.Zero(t, GMTQuality(16))
}

func TestGMTCharge(t *testing.T) {
	var data PtData
	data.DeltaPh[0] = 10

	charge, valid := GMTCharge(12, &data)
	assert.Equal(t, 1, charge)
	assert.Equal(t, 1, valid)

	data.SignPh[0] = 1
	charge, valid = GMTCharge(12, &data)
	assert.Equal(t, 0, charge)
	assert.Equal(t, 1, valid)

	data.DeltaPh[0] = 0
	_, valid = GMTCharge(12, &data)
	assert.Equal(t, 0, valid)

	charge, valid = GMTCharge(8, &data)
	assert.Equal(t, 0, charge)
	assert.Equal(t, 0, valid)
}
