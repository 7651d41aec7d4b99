package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Files writes every solution to <prefix>.sol<cost>.xml and .out, and appends neighbourhoods to <prefix>.nei<cost>.xml.
type Files struct {
	Prefix string
	Data   string
}

func NewFiles(prefix, data string) *Files {
	return &Files{Prefix: prefix, Data: data}
}

func (files *Files) SolutionPath(cost int, extension string) string {
	return fmt.Sprintf("%v.sol%d.%v", files.Prefix, cost, extension)
}

func (files *Files) NeighbourhoodPath(cost float64) string {
	return fmt.Sprintf("%v.nei%d.xml", files.Prefix, int(cost))
}

func (files *Files) RecordSolution(record SolutionRecord) error {
	document, err := xml.MarshalIndent(solutionElement(record, files.Data), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(files.SolutionPath(record.Cost, "xml"), append(document, '\n'), 0644); err != nil {
		return fmt.Errorf("writing solution: %w", err)
	}

	var builder strings.Builder
	for _, session := range record.Sessions {
		fmt.Fprintf(&builder, "%v %v %d %d\n", session.Course, session.Room, session.Day, session.PeriodWithin)
	}
	if err := os.WriteFile(files.SolutionPath(record.Cost, "out"), []byte(builder.String()), 0644); err != nil {
		return fmt.Errorf("writing solution: %w", err)
	}
	return nil
}

func (files *Files) RecordNeighbourhood(record NeighbourhoodRecord) error {
	document, err := xml.MarshalIndent(neighbourhoodElement(record, files.Data), "", "  ")
	if err != nil {
		return err
	}
	file, err := os.OpenFile(files.NeighbourhoodPath(record.Neighbourhood.Cost), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("writing neighbourhood: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(append(document, '\n')); err != nil {
		return fmt.Errorf("writing neighbourhood: %w", err)
	}
	return nil
}

func (files *Files) RecordBound(BoundRecord) error {
	return nil
}
