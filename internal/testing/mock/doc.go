// Package mock provides real MCP servers with canned behaviour for tests.
//
// A Server is built from a ServerConfig, usually parsed from YAML, and is
// backed by the mcp-go server implementation, so the core under test talks
// to a genuine protocol peer rather than a hand written stub.
//
// Servers can be exposed three ways:
//
//   - ServeStdio over any reader/writer pair, typically io.Pipe
//   - HTTPServer, a streamable HTTP endpoint on a loopback port
//   - RunHelperProcess, which serves stdio from inside a re-executed test
//     binary so that process spawning can be exercised end to end
//
// Configuration Format:
//
//	name: files
//	tools:
//	  - name: echo
//	    description: "Echo a message"
//	    input_schema:
//	      type: object
//	      properties:
//	        message:
//	          type: string
//	          default: "hi"
//	    responses:
//	      - condition:
//	          message: "fail"
//	        error: "refusing {{ .message }}"
//	      - response: "echo: {{ .message | upper }}"
//	resources:
//	  - uri: "file:///readme"
//	    name: readme
//	    mime_type: text/plain
//	    text: "hello"
//	prompts:
//	  - name: review
//	    arguments:
//	      - name: code
//	        required: true
//	    messages:
//	      - role: user
//	        text: "Review {{code}}"
//
// Responses are rendered with text/template and the sprig function library,
// with the call arguments (merged with schema defaults) as data.
package mock
