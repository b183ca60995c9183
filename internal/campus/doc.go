// Package campus holds the student data behind the command-line tools:
// the personal schedule, the budget book, the class timetable, the
// weather forecast and long-term memory notes.
//
// Schedule, budget and courses are small JSON files in the data
// directory. Memory notes live in SQLite because they are searched.
package campus
