package vector

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/haldane-gis/geocore/internal/bor"
	"github.com/haldane-gis/geocore/internal/gcerr"
)

// FieldType is a dBASE III field-type code, the attribute-table format
// ESRI Shapefiles use for their .dbf sidecar.
type FieldType byte

const (
	FieldText FieldType = 'C'
	FieldInt  FieldType = 'N'
	FieldReal FieldType = 'F'
	FieldDate FieldType = 'D'
	FieldBool FieldType = 'L'
)

const (
	dbfHeaderSize  = 32
	dbfFieldSize   = 32
	dbfFieldTerm   = 0x0D
	dbfFileEnd     = 0x1A
	dbfActiveFlag  = ' '
	dbfDeletedFlag = '*'
)

// AttributeField describes one DBF column: name, type code, on-disk
// width, and (for Real) decimal places.
type AttributeField struct {
	Name     string
	Type     FieldType
	Width    int
	Decimals int
}

// AttributeTable is a Shapefile's parallel .dbf attribute store: one
// record per geometry, each a slice of typed values matching Fields.
type AttributeTable struct {
	Fields  []AttributeField
	Records [][]any
}

// NewAttributeTable returns an empty table ready for AddField/AddRecord.
func NewAttributeTable() *AttributeTable {
	return &AttributeTable{}
}

// AddField appends a column definition. Fields must be declared before
// any record is added.
func (t *AttributeTable) AddField(f AttributeField) error {
	if len(t.Records) > 0 {
		return gcerr.New(gcerr.InvalidInput, "vector.AddField", "cannot add a field after records exist")
	}
	if f.Width <= 0 {
		return gcerr.New(gcerr.InvalidInput, "vector.AddField", "field width must be positive")
	}
	t.Fields = append(t.Fields, f)
	return nil
}

// AddRecord appends one row of typed values, one per field in order.
func (t *AttributeTable) AddRecord(values []any) error {
	if len(values) != len(t.Fields) {
		return gcerr.New(gcerr.InvalidInput, "vector.AddRecord", "value count does not match field count")
	}
	row := make([]any, len(values))
	copy(row, values)
	t.Records = append(t.Records, row)
	return nil
}

func recordByteLength(fields []AttributeField) int {
	n := 1 // deletion flag
	for _, f := range fields {
		n += f.Width
	}
	return n
}

func readAttributeTable(path string) (*AttributeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gcerr.Wrap(gcerr.NotFound, "vector.readAttributeTable", path, err)
	}
	if len(data) < dbfHeaderSize {
		return nil, gcerr.New(gcerr.Corrupt, "vector.readAttributeTable", "truncated dbf header")
	}
	r := bor.NewReader(data)
	r.SetOrder(bor.LittleEndian)
	if _, err := r.Bytes(4); err != nil { // version + last-update date
		return nil, err
	}
	numRecords, err := r.U32()
	if err != nil {
		return nil, err
	}
	headerLen, err := r.U16()
	if err != nil {
		return nil, err
	}
	recordLen, err := r.U16()
	if err != nil {
		return nil, err
	}
	if _, err := r.Bytes(20); err != nil { // reserved
		return nil, err
	}

	table := NewAttributeTable()
	for r.Pos() < int(headerLen)-1 {
		nameBytes, err := r.Bytes(11)
		if err != nil {
			return nil, err
		}
		if nameBytes[0] == dbfFieldTerm {
			break
		}
		typByte, err := r.U8()
		if err != nil {
			return nil, err
		}
		if _, err := r.Bytes(4); err != nil { // reserved
			return nil, err
		}
		width, err := r.U8()
		if err != nil {
			return nil, err
		}
		decimals, err := r.U8()
		if err != nil {
			return nil, err
		}
		if _, err := r.Bytes(14); err != nil { // reserved
			return nil, err
		}
		table.Fields = append(table.Fields, AttributeField{
			Name:     strings.TrimRight(string(nameBytes), "\x00"),
			Type:     FieldType(typByte),
			Width:    int(width),
			Decimals: int(decimals),
		})
	}
	if err := r.Seek(int(headerLen)); err != nil {
		return nil, err
	}
	_ = recordLen

	for i := 0; i < int(numRecords); i++ {
		flag, err := r.U8()
		if err != nil {
			return nil, err
		}
		row := make([]any, len(table.Fields))
		for fi, f := range table.Fields {
			raw, err := r.Bytes(f.Width)
			if err != nil {
				return nil, err
			}
			v, err := parseFieldValue(f, raw)
			if err != nil {
				return nil, err
			}
			row[fi] = v
		}
		if flag == dbfDeletedFlag {
			continue
		}
		table.Records = append(table.Records, row)
	}
	return table, nil
}

func parseFieldValue(f AttributeField, raw []byte) (any, error) {
	text := strings.TrimSpace(strings.Trim(string(raw), "\x00"))
	switch f.Type {
	case FieldText:
		return text, nil
	case FieldBool:
		switch text {
		case "T", "t", "Y", "y":
			return true, nil
		default:
			return false, nil
		}
	case FieldDate:
		if text == "" {
			return time.Time{}, nil
		}
		d, err := time.Parse("20060102", text)
		if err != nil {
			return nil, gcerr.Wrap(gcerr.Corrupt, "vector.parseFieldValue", "date field", err)
		}
		return d, nil
	case FieldInt:
		if text == "" {
			return int64(0), nil
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, gcerr.Wrap(gcerr.Corrupt, "vector.parseFieldValue", "int field", err)
		}
		return n, nil
	case FieldReal:
		if text == "" {
			return 0.0, nil
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, gcerr.Wrap(gcerr.Corrupt, "vector.parseFieldValue", "real field", err)
		}
		return v, nil
	default:
		return nil, gcerr.New(gcerr.Unsupported, "vector.parseFieldValue", "unsupported dbf field type "+string(f.Type))
	}
}

func formatFieldValue(f AttributeField, v any) (string, error) {
	var text string
	switch f.Type {
	case FieldText:
		s, _ := v.(string)
		text = s
	case FieldBool:
		b, _ := v.(bool)
		if b {
			text = "T"
		} else {
			text = "F"
		}
	case FieldDate:
		d, _ := v.(time.Time)
		if d.IsZero() {
			text = ""
		} else {
			text = d.Format("20060102")
		}
	case FieldInt:
		switch n := v.(type) {
		case int64:
			text = strconv.FormatInt(n, 10)
		case int:
			text = strconv.Itoa(n)
		default:
			return "", gcerr.New(gcerr.InvalidInput, "vector.formatFieldValue", "expected integer value")
		}
	case FieldReal:
		n, ok := v.(float64)
		if !ok {
			return "", gcerr.New(gcerr.InvalidInput, "vector.formatFieldValue", "expected real value")
		}
		text = strconv.FormatFloat(n, 'f', f.Decimals, 64)
	default:
		return "", gcerr.New(gcerr.Unsupported, "vector.formatFieldValue", "unsupported dbf field type "+string(f.Type))
	}
	if len(text) > f.Width {
		text = text[:f.Width]
	}
	pad := f.Width - len(text)
	if f.Type == FieldInt || f.Type == FieldReal {
		return strings.Repeat(" ", pad) + text, nil
	}
	return text + strings.Repeat(" ", pad), nil
}

func writeAttributeTable(t *AttributeTable, path string) error {
	headerLen := dbfHeaderSize + len(t.Fields)*dbfFieldSize + 1
	recordLen := recordByteLength(t.Fields)

	w := bor.NewWriter()
	w.SetOrder(bor.LittleEndian)
	w.WriteU8(0x03) // dBASE III, no memo
	now := time.Now()
	w.WriteU8(uint8(now.Year() % 100))
	w.WriteU8(uint8(now.Month()))
	w.WriteU8(uint8(now.Day()))
	w.WriteU32(uint32(len(t.Records)))
	w.WriteU16(uint16(headerLen))
	w.WriteU16(uint16(recordLen))
	for i := 0; i < 20; i++ {
		w.WriteU8(0)
	}

	for _, f := range t.Fields {
		w.WriteFixedString(f.Name, 11)
		w.WriteU8(byte(f.Type))
		for i := 0; i < 4; i++ {
			w.WriteU8(0)
		}
		if f.Width > 255 {
			return gcerr.New(gcerr.InvalidInput, "vector.writeAttributeTable", "field width exceeds dbf limit")
		}
		w.WriteU8(uint8(f.Width))
		w.WriteU8(uint8(f.Decimals))
		for i := 0; i < 14; i++ {
			w.WriteU8(0)
		}
	}
	w.WriteU8(dbfFieldTerm)

	for _, row := range t.Records {
		w.WriteU8(dbfActiveFlag)
		for fi, f := range t.Fields {
			text, err := formatFieldValue(f, row[fi])
			if err != nil {
				return gcerr.Wrapf(gcerr.InvalidInput, "vector.writeAttributeTable", err, "field %s", f.Name)
			}
			w.WriteFixedString(text, f.Width)
		}
	}
	w.WriteU8(dbfFileEnd)

	if err := os.WriteFile(path, w.Bytes(), 0o644); err != nil {
		return gcerr.Wrap(gcerr.Internal, "vector.writeAttributeTable", path, err)
	}
	return nil
}
