package storage

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atinyakov/JobTracker/internal/models"
)

// PromptForApplication asks for the fields of a new application on w and
// reads the answers from r. Empty answers keep the server defaults.
func PromptForApplication(r io.Reader, w io.Writer) (models.NewApplication, error) {
	scanner := bufio.NewScanner(r)
	ask := func(label string) string {
		fmt.Fprintf(w, "%s: ", label)
		if !scanner.Scan() {
			return ""
		}
		return strings.TrimSpace(scanner.Text())
	}

	var n models.NewApplication
	n.Company = ask("Company")
	n.Position = ask("Position")
	n.Status = models.Status(ask("Status (Applied/Interview/Offer/Rejected)"))
	n.Location = ask("Location")
	n.WorkType = ask("Work type (Remote/Hybrid/On-site)")
	var err error
	if n.SalaryMin, err = parseSalary(ask("Salary min")); err != nil {
		return n, err
	}
	if n.SalaryMax, err = parseSalary(ask("Salary max")); err != nil {
		return n, err
	}
	n.Link = ask("Link")
	n.Notes = ask("Notes")

	if err := scanner.Err(); err != nil {
		return n, err
	}
	return n, nil
}

func parseSalary(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: salary must be a whole number", models.ErrValidation)
	}
	return &v, nil
}
