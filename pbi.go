package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	defaultPBIEndpoint    = "https://wabi-brazil-south-api.analysis.windows.net/public/reports/querydata?synchronous=true"
	defaultPBIResourceKey = "bbc980b5-ae6a-4183-afc3-60412a47caa3"
	pbiUserAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36 Edg/142.0.0.0"
)

// Columns of an IGR table.
const (
	ColOperadora       = "Operadora"
	ColReclamacoes     = "Média de reclamações"
	ColBeneficiarios   = "Média de beneficiários"
	ColIGR             = "IGR"
	ColPosicaoPorte    = "Posição OPS mesmo porte"
	ColPosicaoSetor    = "Posição geral Setor"
	ColMes             = "Mês"
	ColAno             = "Ano"
	ColTipoPlano       = "Tipo Plano"
	ColPorte           = "Porte"
	ColDataAtualizacao = "data_atualizacao"
)

var igrColumns = []string{
	ColOperadora, ColReclamacoes, ColBeneficiarios, ColIGR, ColPosicaoPorte, ColPosicaoSetor,
	ColMes, ColAno, ColTipoPlano, ColPorte, ColDataAtualizacao,
}

// IGRColumns lists the columns of an IGR table in order.
func IGRColumns() []string {
	return append([]string(nil), igrColumns...)
}

// the rows of a single-table report query
var rowsPath = []interface{}{"results", 0, "result", "data", "dsr", "DS", 0, "PH", 0, "DM0"}

// IGRQuery is the cartesian product of filters to collect.
type IGRQuery struct {
	Years     []string
	Months    []string
	Sizes     []string
	PlanTypes []string
}

func DefaultIGRQuery() IGRQuery {
	return IGRQuery{
		Years:     []string{"2025"},
		Months:    []string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
		Sizes:     []string{"Grande Porte", "Médio Porte", "Pequeno Porte"},
		PlanTypes: []string{"Médico-hospitalar", "Exclusivamente odontológica"},
	}
}

func sampleIGRQuery() IGRQuery {
	return IGRQuery{
		Years:     []string{"2025"},
		Months:    []string{"jan"},
		Sizes:     []string{"Grande Porte"},
		PlanTypes: []string{"Médico-hospitalar"},
	}
}

// PBIExtractor queries the public BI report endpoint. Failures never escape:
// every method logs them and returns nil.
type PBIExtractor struct {
	client      *resty.Client
	endpoint    string
	resourceKey string
	activityID  string
	payloads    *payloads
	logger      Logger
}

func NewPBIExtractor(config *configService, logger Logger) (*PBIExtractor, error) {
	p, err := loadPayloads(config.EnvString("PAYLOADS_DIR", "payloads"))
	if err != nil {
		return nil, err
	}
	return &PBIExtractor{
		client:      resty.New().SetTimeout(10 * time.Second),
		endpoint:    config.EnvString("PBI_ENDPOINT", defaultPBIEndpoint),
		resourceKey: config.EnvString("PBI_RESOURCE_KEY", defaultPBIResourceKey),
		activityID:  config.EnvString("PBI_ACTIVITY_ID", uuid.NewString()),
		payloads:    p,
		logger:      logger,
	}, nil
}

// PBI returns the BI report extractor of this application.
func (app *Extractor) PBI() (*PBIExtractor, error) {
	return NewPBIExtractor(app.Config, app.Logger)
}

// extract posts one query and returns the decoded body when it carries results.
func (p *PBIExtractor) extract(ctx context.Context, body []byte) (map[string]interface{}, error) {
	res, err := p.client.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"Accept":                "application/json, text/plain, */*",
			"Content-Type":          "application/json;charset=UTF-8",
			"Origin":                "https://app.powerbi.com",
			"Referer":               "https://app.powerbi.com/",
			"User-Agent":            pbiUserAgent,
			"ActivityId":            p.activityID,
			"X-PowerBI-ResourceKey": p.resourceKey,
		}).
		SetBody(body).
		Post(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTransport, res.StatusCode())
	}

	var data map[string]interface{}
	if err := json.Unmarshal(res.Body(), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	results, ok := data["results"].([]interface{})
	if !ok || len(results) == 0 {
		return nil, fmt.Errorf("%w: response has no results", ErrDecode)
	}
	p.logger.Info("✅ Data received! Processing...")
	return data, nil
}

// LastUpdated returns the report's refresh date, or nil.
func (p *PBIExtractor) LastUpdated(ctx context.Context) interface{} {
	value, err := p.lastUpdated(ctx)
	if err != nil {
		p.logger.Error("❌ Last update date unavailable: %v", err)
		return nil
	}
	p.logger.Info("Last update: %v", value)
	return value
}

func (p *PBIExtractor) lastUpdated(ctx context.Context) (interface{}, error) {
	data, err := p.extract(ctx, p.payloads.data)
	if err != nil {
		return nil, err
	}
	return walkJSON(data, append(append([]interface{}{}, rowsPath...), 0, "M0")...)
}

// IGR collects the complaints index table for every combination of q.
// Combinations without rows are skipped; nil means nothing was collected.
func (p *PBIExtractor) IGR(ctx context.Context, q IGRQuery) *Table {
	updated, err := p.lastUpdated(ctx)
	if err != nil {
		p.logger.Error("❌ Last update date unavailable: %v", err)
	}

	out := NewTable(igrColumns...)
	for _, year := range q.Years {
		for _, month := range q.Months {
			for _, size := range q.Sizes {
				for _, planType := range q.PlanTypes {
					if ctx.Err() != nil {
						p.logger.Error("❌ IGR extraction interrupted: %v", ctx.Err())
						return nil
					}
					p.logger.Info("🔄 Extracting data for %s/%s - %s - %s", month, year, size, planType)
					rows, err := p.igrRows(ctx, planType, month, year, size)
					if err != nil {
						p.logger.Error("❌ Error: %v", err)
					}
					if len(rows) == 0 {
						p.logger.Warn("❌ Empty data for %s/%s", month, year)
						continue
					}
					for _, row := range rows {
						out.Append(append(row,
							TextValue(month),
							TextValue(year),
							TextValue(planType),
							TextValue(size),
							jsonValue(updated),
						)...)
					}
				}
			}
		}
	}
	if out.Len() == 0 {
		return nil
	}
	return out
}

// SampleIGR returns the first IGR row of a single combination, or nil.
func (p *PBIExtractor) SampleIGR(ctx context.Context) map[string]interface{} {
	table := p.IGR(ctx, sampleIGRQuery())
	if table == nil {
		p.logger.Warn("No record found for the sample")
		return nil
	}
	p.logger.Info("Sample record obtained")
	return table.Records()[0]
}

func (p *PBIExtractor) igrRows(ctx context.Context, planType, month, year, size string) ([][]Value, error) {
	body, err := p.payloads.igr(planType, month, year, size)
	if err != nil {
		return nil, err
	}
	data, err := p.extract(ctx, body)
	if err != nil {
		return nil, err
	}
	return igrRowsFromResponse(data)
}

// igrRowsFromResponse converts the report rows. Rows flagged with "R" reuse
// values of the previous row and are skipped.
func igrRowsFromResponse(data map[string]interface{}) ([][]Value, error) {
	raw, err := walkJSON(data, rowsPath...)
	if err != nil {
		return nil, err
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: rows are %T", ErrDecode, raw)
	}

	var rows [][]Value
	for i, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: row %d is %T", ErrDecode, i, item)
		}
		if _, repeated := entry["R"]; repeated {
			continue
		}
		c, ok := entry["C"].([]interface{})
		if !ok || len(c) < 6 {
			return nil, fmt.Errorf("%w: row %d has no complete C values", ErrDecode, i)
		}
		row, err := igrRow(c)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrDecode, i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func igrRow(c []interface{}) ([]Value, error) {
	reclamacoes, err := jsonFloat(c[1])
	if err != nil {
		return nil, err
	}
	beneficiarios, err := jsonInt(c[2])
	if err != nil {
		return nil, err
	}
	igr, err := jsonFloat(c[3])
	if err != nil {
		return nil, err
	}
	posicaoPorte, err := jsonInt(c[4])
	if err != nil {
		return nil, err
	}
	posicaoSetor, err := jsonInt(c[5])
	if err != nil {
		return nil, err
	}
	return []Value{
		TextValue(fmt.Sprint(c[0])),
		NumberValue(reclamacoes),
		NumberValue(float64(beneficiarios)),
		NumberValue(math.Round(igr*100) / 100),
		NumberValue(float64(posicaoPorte)),
		NumberValue(float64(posicaoSetor)),
	}, nil
}

// walkJSON follows string keys and int indexes through decoded JSON.
func walkJSON(v interface{}, path ...interface{}) (interface{}, error) {
	for i, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := v.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: %v is not an object", ErrDecode, path[:i])
			}
			if v, ok = m[key]; !ok {
				return nil, fmt.Errorf("%w: missing %v", ErrDecode, path[:i+1])
			}
		case int:
			a, ok := v.([]interface{})
			if !ok || key >= len(a) {
				return nil, fmt.Errorf("%w: missing %v", ErrDecode, path[:i+1])
			}
			v = a[key]
		}
	}
	return v, nil
}

func jsonFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

// jsonInt truncates like an integer conversion of a decimal would.
func jsonInt(v interface{}) (int64, error) {
	if s, ok := v.(string); ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := jsonFloat(v)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func jsonValue(v interface{}) Value {
	switch n := v.(type) {
	case nil:
		return NullValue()
	case float64:
		return NumberValue(n)
	case string:
		return TextValue(n)
	default:
		return TextValue(fmt.Sprint(n))
	}
}
