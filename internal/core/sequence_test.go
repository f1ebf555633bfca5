package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSequence(t *testing.T) {
	cases := []struct {
		n     int64
		width int
		want  string
	}{
		{1, 7, "0000001"},
		{1000, 7, "0001000"},
		{10000000, 7, "10000000"},
		{1, 6, "000001"},
		{1000000, 6, "1000000"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatSequence(c.n, c.width))
	}
}

func TestFormatSequence_SuccessorOfParsed(t *testing.T) {
	cases := []struct {
		stored string
		series Series
		want   string
	}{
		{"0000999", SeriesOrder, "0001000"},
		{"9999999", SeriesSale, "10000000"},
		{"999999", SeriesProduct, "1000000"},
		{"000041", SeriesReturn, "000042"},
	}
	for _, c := range cases {
		n, ok := parseSequence(c.stored)
		require.True(t, ok, c.stored)
		assert.Equal(t, c.want, FormatSequence(n+1, c.series.Width()), c.stored)
	}
}

func TestParseSequence(t *testing.T) {
	n, ok := parseSequence("0000042")
	require.True(t, ok)
	assert.Equal(t, int64(42), n)

	for _, bad := range []string{"", "12a", "-1", " 1", "1234567890123456789"} {
		_, ok := parseSequence(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseSeries(t *testing.T) {
	s, err := ParseSeries(" Sale ")
	require.NoError(t, err)
	assert.Equal(t, SeriesSale, s)
	assert.Equal(t, 7, s.Width())

	_, err = ParseSeries("invoice")
	assert.ErrorIs(t, err, ErrValidation)
}
