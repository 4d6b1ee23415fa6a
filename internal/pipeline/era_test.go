package pipeline

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertEraDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  CalendarDate
	}{
		{"listing heading", "令和6年1月29日", CalendarDate{2024, time.January, 29}},
		{"first year marker", "令和元年5月1日", CalendarDate{2019, time.May, 1}},
		{"first year as number", "令和1年5月1日", CalendarDate{2019, time.May, 1}},
		{"two digit month and day", "令和5年12月31日", CalendarDate{2023, time.December, 31}},
		{"full-width digits", "令和７年１２月３日", CalendarDate{2025, time.December, 3}},
		{"surrounding whitespace", "  令和6年1月26日\n", CalendarDate{2024, time.January, 26}},
		{"spaces between parts", "令和 6 年 1 月 26 日", CalendarDate{2024, time.January, 26}},
		{"leap day", "令和6年2月29日", CalendarDate{2024, time.February, 29}},
		{"trailing text", "令和6年1月29日（月）", CalendarDate{2024, time.January, 29}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ConvertEraDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertEraDateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"gregorian", "2024年1月29日"},
		{"other era", "平成31年4月30日"},
		{"missing day", "令和6年1月"},
		{"missing month", "令和6年29日"},
		{"year zero", "令和0年1月1日"},
		{"month out of range", "令和6年13月1日"},
		{"day out of range", "令和6年2月30日"},
		{"not a leap year", "令和5年2月29日"},
		{"garbage", "新着情報"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ConvertEraDate(tt.input)
			require.Error(t, err)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "want *ParseError, got %T", err)
			assert.Equal(t, tt.input, parseErr.Input)
			assert.Equal(t, "parse", ErrorKind(err))
		})
	}
}

func TestConvertEraDateYearOffset(t *testing.T) {
	t.Parallel()

	for n := 2; n <= 30; n++ {
		got, err := ConvertEraDate("令和" + strconv.Itoa(n) + "年4月1日")
		require.NoError(t, err)
		assert.Equal(t, n+2018, got.Year)
	}
}
