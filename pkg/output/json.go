package output

import (
	"encoding/json"
	"io"
)

// JSONTo writes data as indented JSON.
func JSONTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
