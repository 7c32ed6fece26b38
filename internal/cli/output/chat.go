package output

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leapchat/internal/resultset"
	"github.com/leapstack-labs/leapchat/internal/transcript"
)

// geometryCell replaces shape values in terminal tables.
const geometryCell = "(geometry)"

// SQLOutput is the JSON form of generated SQL.
type SQLOutput struct {
	Question string `json:"question,omitempty"`
	SQL      string `json:"sql"`
}

// ResultOutput is the JSON form of a run_sql result.
type ResultOutput struct {
	Shape   string   `json:"shape"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Shapes  int      `json:"shapes,omitempty"`
}

// ErrorOutput is the JSON form of a backend-reported failure.
type ErrorOutput struct {
	Error string `json:"error"`
}

// SQL writes generated SQL.
func (r *Renderer) SQL(question, sql string) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(SQLOutput{Question: question, SQL: sql})
	case ModeMarkdown:
		r.Printf("```sql\n%s\n```\n", strings.TrimRight(sql, "\n"))
		return nil
	}

	if r.Colored() {
		var b strings.Builder
		if err := quick.Highlight(&b, sql, "sql", "terminal256", "monokai"); err == nil {
			r.Println(r.styles.Code.Render(b.String()))
			return nil
		}
	}
	r.Println(r.styles.Code.Render(sql))
	return nil
}

// BackendError writes a failure reported by the backend.
func (r *Renderer) BackendError(msg string) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(ErrorOutput{Error: msg})
	case ModeMarkdown:
		r.Printf("> **Error:** %s\n", msg)
		return nil
	}
	r.Println(r.styles.Error.Render("Error: ") + msg)
	return nil
}

// Result writes a decoded run_sql result.
func (r *Renderer) Result(rs *resultset.ResultSet) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(NewResultOutput(rs))
	}

	if rs.Shape == resultset.ShapeEmpty {
		r.Muted(transcript.NoDataNotice)
		return nil
	}

	t := Table(rs)
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(t.RenderMarkdown())
	} else {
		t.SetStyle(table.StyleLight)
		r.Println(t.Render())
	}

	r.Muted(Summary(rs))
	return nil
}

// Questions writes the candidate questions as a numbered list.
func (r *Renderer) Questions(questions []string) error {
	if r.EffectiveMode() == ModeJSON {
		if questions == nil {
			questions = []string{}
		}
		return r.JSON(questions)
	}
	if len(questions) == 0 {
		r.Muted("No suggested questions.")
		return nil
	}
	for i, q := range questions {
		if r.EffectiveMode() == ModeMarkdown {
			r.Printf("%d. %s\n", i+1, q)
			continue
		}
		r.Printf("%s %s\n", r.styles.Number.Render(fmt.Sprintf("%2d.", i+1)), q)
	}
	return nil
}

// NewResultOutput converts a result set to its JSON form, keeping column order.
func NewResultOutput(rs *resultset.ResultSet) ResultOutput {
	out := ResultOutput{
		Shape:   rs.Shape.String(),
		Columns: rs.Columns,
		Rows:    make([][]any, 0, len(rs.Rows)),
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for _, row := range rs.Rows {
		values := make([]any, len(rs.Columns))
		for i, col := range rs.Columns {
			values[i], _ = row.Get(col)
		}
		out.Rows = append(out.Rows, values)
	}
	out.Shapes = shapeCount(rs)
	return out
}

// Table builds a go-pretty table of the result. Shape columns show a
// placeholder instead of their GeoJSON.
func Table(rs *resultset.ResultSet) table.Writer {
	t := table.NewWriter()

	header := make(table.Row, len(rs.Columns))
	for i, col := range rs.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range rs.Rows {
		row := make(table.Row, len(rs.Columns))
		for i, col := range rs.Columns {
			v, ok := r.Get(col)
			switch {
			case !ok:
				row[i] = ""
			case rs.Shape == resultset.ShapeMap && resultset.IsGeoColumn(col):
				row[i] = geometryCell
			default:
				row[i] = resultset.FormatValue(v)
			}
		}
		t.AppendRow(row)
	}
	return t
}

// Summary describes the size of a result.
func Summary(rs *resultset.ResultSet) string {
	rows := "rows"
	if len(rs.Rows) == 1 {
		rows = "row"
	}
	if rs.Shape != resultset.ShapeMap {
		return fmt.Sprintf("(%d %s)", len(rs.Rows), rows)
	}
	return fmt.Sprintf("(%d %s, %d shapes; open `leapchat ui` to see the map)", len(rs.Rows), rows, shapeCount(rs))
}

func shapeCount(rs *resultset.ResultSet) int {
	n := 0
	for _, o := range rs.Overlays {
		n += len(o.Features)
	}
	return n
}
