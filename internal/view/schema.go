package view

import "fmt"

// propSchema maps property keys to the kind each must carry. Keys shared by
// every component kind live in commonSchema; per-tag entries extend it.
type propSchema map[string]Kind

var commonSchema = propSchema{
	"style":        KindMap,
	"layout":       KindMap,
	"initialState": KindMap,
	"events":       KindMap,
}

var tagSchemas = map[TypeTag]propSchema{
	TagLabel: {
		"text":      KindString,
		"textStyle": KindMap,
	},
	TagImage: {
		"source":     KindString,
		"resizeMode": KindString,
	},
	TagScrollView: {
		"scrollViewStyle": KindMap,
	},
	TagTextInput: {
		"placeholder": KindString,
		"value":       KindString,
		"secure":      KindBool,
	},
	TagTouchableOpacity: {
		"activeOpacity": KindNumber,
	},
	TagListView: {
		"dataLength":            KindNumber,
		"windowSize":            KindNumber,
		"horizontal":            KindBool,
		"itemSpacing":           KindNumber,
		"showsIndicators":       KindBool,
		"bounces":               KindBool,
		"contentInset":          KindMap,
		"onEndReachedThreshold": KindNumber,
	},
}

// ValidateProps checks a property bag against the schema for tag. Unknown keys
// and kind mismatches fail with ErrInvalidArguments so malformed remote input
// is rejected at the boundary instead of silently no-op-ing.
func ValidateProps(tag TypeTag, props Props) error {
	specific := tagSchemas[tag]
	for _, key := range props.Keys() {
		want, ok := commonSchema[key]
		if !ok {
			want, ok = specific[key]
		}
		if !ok {
			return fmt.Errorf("%w: unknown property %q for %s", ErrInvalidArguments, key, tag)
		}
		v := props[key]
		if v.IsAbsent() {
			continue
		}
		if v.Kind() != want {
			return fmt.Errorf("%w: property %q for %s must be %s, got %s",
				ErrInvalidArguments, key, tag, want, v.Kind())
		}
	}
	return nil
}
