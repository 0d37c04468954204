package echoapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/staffroom/core"
	"github.com/trezcool/staffroom/core/report"
)

// formAmount is a raw form amount, sent either as a JSON string or number.
type formAmount string

func (a *formAmount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = formAmount(s)
		return nil
	}
	if string(b) == "null" {
		*a = ""
		return nil
	}
	*a = formAmount(b)
	return nil
}

// intParam reads the integer path parameter `name`.
func intParam(ctx echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be a number"})
	}
	return n, nil
}

// intQueryParams reads every value of the integer query parameter `name`.
func intQueryParams(ctx echo.Context, name string) ([]int, error) {
	vals := ctx.QueryParams()[name]
	nums := make([]int, 0, len(vals))
	for _, v := range vals {
		n, err := strconv.Atoi(core.CleanString(v))
		if err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be a number"})
		}
		nums = append(nums, n)
	}
	return nums, nil
}

func sendHTML(ctx echo.Context, render func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	return ctx.HTMLBlob(http.StatusOK, buf.Bytes())
}

func sendText(ctx echo.Context, render func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, buf.Bytes())
}

func sendXLSX(ctx echo.Context, prefix string, write func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	filename := report.XLSXFilename(prefix, NowFunc())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, report.XLSXContentType, buf.Bytes())
}
