package utils

import "reflect"

// ColumnTag is the struct tag used to map entity fields to table columns.
var ColumnTag = "db"

func structValue(input any) reflect.Value {
	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return v
}

// StructTagValues returns the column names declared by the db tags of the
// exported fields of input, in declaration order.
func StructTagValues(input any) []string {

	v := structValue(input)
	t := v.Type()

	result := make([]string, 0, v.NumField())

	for i := 0; i < v.NumField(); i++ {

		if t.Field(i).PkgPath != "" {
			continue
		}

		tagValue := t.Field(i).Tag.Get(ColumnTag)
		if tagValue == "" || tagValue == "-" {
			continue
		}

		result = append(result, tagValue)

	}

	return result

}

// StructToMap maps column name to field value for every db-tagged exported
// field of input. Used to feed squirrel's SetMap on inserts and updates.
func StructToMap(input any) map[string]any {

	v := structValue(input)
	t := v.Type()

	result := make(map[string]any, v.NumField())

	for i := 0; i < v.NumField(); i++ {

		if t.Field(i).PkgPath != "" {
			continue
		}

		tagValue := t.Field(i).Tag.Get(ColumnTag)
		if tagValue == "" || tagValue == "-" {
			continue
		}

		result[tagValue] = v.Field(i).Interface()

	}

	return result

}
