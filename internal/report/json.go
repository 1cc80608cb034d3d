package report

import (
	"encoding/json"
	"io"
)

type JSONRenderer struct{}

func (p *JSONRenderer) Render(r Report, w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
