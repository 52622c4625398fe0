package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	cases := map[string]Type{
		"STRING":     TypeString,
		"string":     TypeString,
		"BOOLEAN":    TypeBoolean,
		"BOOL":       TypeBoolean,
		"INTEGER":    TypeInteger,
		"INT64":      TypeInteger,
		"FLOAT64":    TypeFloat,
		"TIMESTAMP":  TypeTimestamp,
		"DATE":       TypeDate,
		"STRUCT":     TypeRecord,
		"RECORD":     TypeRecord,
		"GEOGRAPHY":  TypeInvalid,
		"JSON":       TypeInvalid,
		"INTERVAL":   TypeInvalid,
		"BIGNUMERIC": TypeBigNumeric,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseType(in), "ParseType(%q)", in)
	}
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "TIMESTAMP", TypeTimestamp.String())
	assert.Equal(t, "RECORD", TypeRecord.String())
	assert.Equal(t, "INVALID", TypeInvalid.String())
	assert.False(t, TypeInvalid.Valid())
	assert.True(t, TypeDate.Valid())
}

func TestTemporal(t *testing.T) {
	assert.True(t, TypeTimestamp.Temporal())
	assert.True(t, TypeDate.Temporal())
	assert.True(t, TypeDateTime.Temporal())
	assert.True(t, TypeTime.Temporal())
	assert.False(t, TypeString.Temporal())
	assert.False(t, TypeRecord.Temporal())
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeNullable, ParseMode(""))
	assert.Equal(t, ModeNullable, ParseMode("NULLABLE"))
	assert.Equal(t, ModeRequired, ParseMode("required"))
	assert.Equal(t, ModeRepeated, ParseMode("REPEATED"))
	assert.True(t, (&Column{Mode: ModeRepeated}).Repeated())
}

func TestTable(t *testing.T) {
	tbl := &Table{
		Project: "mozdata",
		Dataset: "fenix",
		Name:    "baseline",
		Columns: []*Column{
			{Name: "client_id", Type: TypeString},
			{Name: "submission_timestamp", Type: TypeTimestamp},
		},
	}
	assert.Equal(t, "mozdata.fenix.baseline", tbl.FullyQualifiedName())
	require.NotNil(t, tbl.Column("client_id"))
	assert.Nil(t, tbl.Column("missing"))
}

func TestParseTableName(t *testing.T) {
	p, d, n, err := ParseTableName("mozdata.fenix.baseline")
	require.NoError(t, err)
	assert.Equal(t, []string{"mozdata", "fenix", "baseline"}, []string{p, d, n})

	_, _, _, err = ParseTableName("fenix.baseline")
	assert.Error(t, err)
}
