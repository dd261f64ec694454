package anthem

// BuildStream expands a record into its tuple stream.
//
// Every present schema field is encoded once and repeated budget/len(schema)
// times, in schema order. Absent fields contribute nothing, so the stream can
// be shorter than budget. Conversion failures are returned as warnings and
// the field is encoded as 0.
func BuildStream(fields FieldMap, schema FieldSchema, budget int) (TupleStream, []EncodingWarning, error) {
	if err := validate(schema, budget); err != nil {
		return nil, nil, err
	}
	perField := budget / len(schema)

	var (
		stream   = make(TupleStream, 0, perField*len(schema))
		warnings []EncodingWarning
	)
	for _, name := range schema {
		t, ok, warn := Encode(name, fields[name])
		if !ok {
			continue
		}
		if warn != nil {
			warnings = append(warnings, *warn)
		}
		for i := 0; i < perField; i++ {
			stream = append(stream, t)
		}
	}
	return stream, warnings, nil
}

func validate(schema FieldSchema, budget int) error {
	if len(schema) == 0 {
		return &SchemaError{Err: ErrEmptySchema}
	}
	if budget <= 0 {
		return &SchemaError{Err: ErrNonPositiveBudget}
	}
	return nil
}
