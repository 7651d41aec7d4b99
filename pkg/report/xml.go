package report

import (
	"encoding/xml"
	"io"
	"sync"
	"time"

	"github.com/samber/lo"
)

type xmlFixing struct {
	Course int  `xml:"course,attr"`
	Period *int `xml:"period,attr,omitempty"`
	Day    *int `xml:"day,attr,omitempty"`
	Events *int `xml:"events,attr,omitempty"`
}

type xmlNeighbourhood struct {
	XMLName              xml.Name    `xml:"neighbourhood"`
	Data                 string      `xml:"data,attr"`
	Type                 string      `xml:"type,attr"`
	Discovered           float64     `xml:"discovered,attr"`
	Cost                 float64     `xml:"cost,attr"`
	PenaltyCompactness   int         `xml:"penaltyCompactness,attr"`
	PenaltyMinCourseDays int         `xml:"penaltyMinCourseDays,attr"`
	LowerBound           float64     `xml:"LB,attr"`
	PreprocessedAway     int         `xml:"preprocessedAway,attr"`
	Definition           []xmlFixing `xml:"definition>session"`
}

type xmlSession struct {
	Course       string `xml:"course,attr"`
	Room         string `xml:"room,attr"`
	Period       int    `xml:"period,attr"`
	Day          int    `xml:"day,attr"`
	PeriodWithin int    `xml:"periodWithin,attr"`
}

type xmlSolution struct {
	XMLName              xml.Name     `xml:"solution"`
	SubmodelCost         float64      `xml:"submodelCost,attr"`
	Cost                 int          `xml:"cost,attr"`
	Data                 string       `xml:"data,attr"`
	Type                 string       `xml:"type,attr"`
	Discovered           float64      `xml:"discovered,attr"`
	NeighbourhoodLB      float64      `xml:"neighbourhoodLB,attr"`
	PenaltyRoomCapacity  int          `xml:"penaltyRoomCapacity,attr"`
	PenaltyMinCourseDays int          `xml:"penaltyMinCourseDays,attr"`
	PenaltyCompactness   int          `xml:"penaltyCompactness,attr"`
	PenaltyRoomStability int          `xml:"penaltyRoomStability,attr"`
	Sessions             []xmlSession `xml:"session"`
}

type xmlBound struct {
	XMLName    xml.Name
	Value      float64 `xml:"value,attr"`
	Discovered float64 `xml:"discovered,attr"`
}

type xmlTimestamp struct {
	XMLName xml.Name `xml:"timestamp"`
	End     float64  `xml:"end,attr"`
}

func neighbourhoodElement(record NeighbourhoodRecord, data string) xmlNeighbourhood {
	neighbourhood := record.Neighbourhood
	element := xmlNeighbourhood{
		Data:                 data,
		Type:                 neighbourhood.Phase.String(),
		Discovered:           record.Discovered.Seconds(),
		Cost:                 neighbourhood.Cost,
		PenaltyCompactness:   neighbourhood.PenaltyCompactness,
		PenaltyMinCourseDays: neighbourhood.PenaltyMinCourseDays,
		LowerBound:           neighbourhood.LowerBound,
		PreprocessedAway:     len(neighbourhood.PreprocessAway),
	}
	for _, fix := range neighbourhood.FixPeriod {
		element.Definition = append(element.Definition, xmlFixing{Course: fix.Course, Period: lo.ToPtr(fix.Period)})
	}
	for _, fix := range neighbourhood.FixDay {
		element.Definition = append(element.Definition, xmlFixing{Course: fix.Course, Day: lo.ToPtr(fix.Day), Events: lo.ToPtr(fix.Events)})
	}
	return element
}

func solutionElement(record SolutionRecord, data string) xmlSolution {
	return xmlSolution{
		SubmodelCost:         record.SubmodelCost,
		Cost:                 record.Cost,
		Data:                 data,
		Type:                 record.Phase.String(),
		Discovered:           record.Discovered.Seconds(),
		NeighbourhoodLB:      record.NeighbourhoodLB,
		PenaltyRoomCapacity:  record.Penalties.RoomCapacity,
		PenaltyMinCourseDays: record.Penalties.MinCourseDays,
		PenaltyCompactness:   record.Penalties.Compactness,
		PenaltyRoomStability: record.Penalties.RoomStability,
		Sessions: lo.Map(record.Sessions, func(session Session, _ int) xmlSession {
			return xmlSession(session)
		}),
	}
}

// XMLLog streams the progress of a solve as a single <log> document.
type XMLLog struct {
	mutex   sync.Mutex
	encoder *xml.Encoder
	data    string
	root    xml.StartElement
}

// NewXMLLog writes the prolog and opens the <log> element for the instance at data.
func NewXMLLog(writer io.Writer, data, configId string) (*XMLLog, error) {
	encoder := xml.NewEncoder(writer)
	encoder.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "log"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "data"}, Value: data},
			{Name: xml.Name{Local: "config"}, Value: configId},
		},
	}
	if err := encoder.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}); err != nil {
		return nil, err
	}
	if err := encoder.EncodeToken(root); err != nil {
		return nil, err
	}
	if err := encoder.Flush(); err != nil {
		return nil, err
	}
	return &XMLLog{encoder: encoder, data: data, root: root}, nil
}

func (log *XMLLog) encode(element any) error {
	log.mutex.Lock()
	defer log.mutex.Unlock()
	return log.encoder.Encode(element)
}

func (log *XMLLog) RecordNeighbourhood(record NeighbourhoodRecord) error {
	return log.encode(neighbourhoodElement(record, log.data))
}

func (log *XMLLog) RecordSolution(record SolutionRecord) error {
	return log.encode(solutionElement(record, log.data))
}

func (log *XMLLog) RecordBound(record BoundRecord) error {
	return log.encode(xmlBound{
		XMLName:    xml.Name{Local: record.Tag},
		Value:      record.Value,
		Discovered: record.Discovered.Seconds(),
	})
}

// Close stamps the end of the solve and closes the <log> element.
func (log *XMLLog) Close(elapsed time.Duration) error {
	if err := log.encode(xmlTimestamp{End: elapsed.Seconds()}); err != nil {
		return err
	}
	log.mutex.Lock()
	defer log.mutex.Unlock()
	if err := log.encoder.EncodeToken(log.root.End()); err != nil {
		return err
	}
	return log.encoder.Close()
}
