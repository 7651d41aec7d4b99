package model

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// tokenReader walks a whitespace separated stream, which is all the ctt format needs.
type tokenReader struct {
	scanner *bufio.Scanner
}

func (reader *tokenReader) next() (string, error) {
	if !reader.scanner.Scan() {
		if err := reader.scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: unexpected end of file", ErrMalformedInstance)
	}
	return reader.scanner.Text(), nil
}

func (reader *tokenReader) expect(keyword string) error {
	token, err := reader.next()
	if err != nil {
		return err
	}
	if token != keyword {
		return fmt.Errorf("%w: expected \"%v\" but found \"%v\"", ErrMalformedInstance, keyword, token)
	}
	return nil
}

func (reader *tokenReader) int() (int, error) {
	token, err := reader.next()
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: \"%v\" is not an integer", ErrMalformedInstance, token)
	}
	return value, nil
}

func (reader *tokenReader) header(keyword string) (int, error) {
	if err := reader.expect(keyword); err != nil {
		return 0, err
	}
	return reader.int()
}

// ParseInstance reads the curriculum-based timetabling text format (header, COURSES, ROOMS, CURRICULA, UNAVAILABILITY_CONSTRAINTS).
func ParseInstance(input io.Reader) (*Instance, error) {
	scanner := bufio.NewScanner(input)
	scanner.Split(bufio.ScanWords)
	reader := &tokenReader{scanner: scanner}

	var raw RawInstance
	if err := reader.expect("Name:"); err != nil {
		return nil, err
	}
	name, err := reader.next()
	if err != nil {
		return nil, err
	}
	raw.Name = name

	counts := make([]int, 0, 6)
	for _, keyword := range []string{"Courses:", "Rooms:", "Days:", "Periods_per_day:", "Curricula:", "Constraints:"} {
		value, err := reader.header(keyword)
		if err != nil {
			return nil, err
		}
		if value < 0 {
			return nil, fmt.Errorf("%w: negative %v", ErrMalformedInstance, keyword)
		}
		counts = append(counts, value)
	}
	courses, rooms, curricula, constraints := counts[0], counts[1], counts[4], counts[5]
	raw.Days, raw.PeriodsPerDay = counts[2], counts[3]

	if err := reader.expect("COURSES:"); err != nil {
		return nil, err
	}
	for range courses {
		var course RawCourse
		if course.Name, err = reader.next(); err != nil {
			return nil, err
		}
		if course.Teacher, err = reader.next(); err != nil {
			return nil, err
		}
		if course.Lectures, err = reader.int(); err != nil {
			return nil, err
		}
		if course.MinDays, err = reader.int(); err != nil {
			return nil, err
		}
		if course.Students, err = reader.int(); err != nil {
			return nil, err
		}
		raw.Courses = append(raw.Courses, course)
	}

	if err := reader.expect("ROOMS:"); err != nil {
		return nil, err
	}
	for range rooms {
		var room Room
		if room.Name, err = reader.next(); err != nil {
			return nil, err
		}
		if room.Capacity, err = reader.int(); err != nil {
			return nil, err
		}
		raw.Rooms = append(raw.Rooms, room)
	}

	if err := reader.expect("CURRICULA:"); err != nil {
		return nil, err
	}
	for range curricula {
		var curriculum RawCurriculum
		if curriculum.Name, err = reader.next(); err != nil {
			return nil, err
		}
		size, err := reader.int()
		if err != nil {
			return nil, err
		}
		for range size {
			course, err := reader.next()
			if err != nil {
				return nil, err
			}
			curriculum.Courses = append(curriculum.Courses, course)
		}
		raw.Curricula = append(raw.Curricula, curriculum)
	}

	if err := reader.expect("UNAVAILABILITY_CONSTRAINTS:"); err != nil {
		return nil, err
	}
	for range constraints {
		var restriction RawRestriction
		if restriction.Course, err = reader.next(); err != nil {
			return nil, err
		}
		if restriction.Day, err = reader.int(); err != nil {
			return nil, err
		}
		if restriction.Period, err = reader.int(); err != nil {
			return nil, err
		}
		raw.Restrictions = append(raw.Restrictions, restriction)
	}

	return ProcessRawInstance(raw)
}
