package tasktransport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ichigozero/tasknotes/tasksvc"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const createTaskSchema = `{
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"priority": {"enum": ["low", "medium", "high"]},
		"dueDate": {"type": ["string", "null"], "format": "date-time"}
	},
	"required": ["title", "priority"],
	"additionalProperties": false
}`

const updateTaskSchema = `{
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"completed": {"type": "boolean"},
		"priority": {"enum": ["low", "medium", "high"]},
		"dueDate": {"type": "string", "format": "date-time"}
	},
	"additionalProperties": false
}`

const createNoteSchema = `{
	"type": "object",
	"properties": {
		"content": {"type": "string"}
	},
	"required": ["content"],
	"additionalProperties": false
}`

var (
	createTaskBody = mustCompile("createTask.json", createTaskSchema)
	updateTaskBody = mustCompile("updateTask.json", updateTaskSchema)
	createNoteBody = mustCompile("createNote.json", createNoteSchema)
)

func mustCompile(name, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	if err := compiler.AddResource(name, strings.NewReader(schema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

// decodeBody validates the request body against schema before decoding it
// into v. Any failure is reported as tasksvc.ErrInvalidArgument.
func decodeBody(r *http.Request, schema *jsonschema.Schema, v interface{}) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", tasksvc.ErrInvalidArgument)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("malformed body: %w", tasksvc.ErrInvalidArgument)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w", schemaMessage(err), tasksvc.ErrInvalidArgument)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed body: %w", tasksvc.ErrInvalidArgument)
	}
	return nil
}

func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}

	var msgs []string
	collectSchemaErrors(ve, &msgs)
	return strings.Join(msgs, "; ")
}

func collectSchemaErrors(err *jsonschema.ValidationError, msgs *[]string) {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*msgs = append(*msgs, loc+": "+err.Message)
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(cause, msgs)
	}
}
