package hermes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dataPayloadFile = "payload_data.json"
	igrPayloadFile  = "payload_igr.json"
)

// payloads holds the query bodies of the BI report. The IGR body is a
// template with {{ANO}}, {{MES}}, {{PORTE}} and {{TIPO_PLANO}} placeholders.
type payloads struct {
	data        []byte
	igrTemplate string
}

func loadPayloads(dir string) (*payloads, error) {
	data, err := os.ReadFile(filepath.Join(dir, dataPayloadFile))
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrDecode, dataPayloadFile)
	}
	igr, err := os.ReadFile(filepath.Join(dir, igrPayloadFile))
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	return &payloads{data: data, igrTemplate: string(igr)}, nil
}

// igr fills the IGR template for one combination.
func (p *payloads) igr(planType, month, year, size string) ([]byte, error) {
	body := strings.NewReplacer(
		"{{ANO}}", year,
		"{{MES}}", month,
		"{{PORTE}}", size,
		"{{TIPO_PLANO}}", planType,
	).Replace(p.igrTemplate)
	if !json.Valid([]byte(body)) {
		return nil, fmt.Errorf("%w: %s does not render valid JSON", ErrDecode, igrPayloadFile)
	}
	return []byte(body), nil
}
