// Package mcp implements a line-delimited JSON-RPC tool server over a byte
// stream, typically standard input and output.
//
// A session starts Uninitialized. The client sends "initialize" (answered
// with server info and the tool catalogue) and then the
// "notifications/initialized" notification, after which "tools/list" and
// "tools/call" are served. Every envelope written is one JSON object
// terminated by "\r\n".
//
// Example:
//
//	registry := mcp.NewToolRegistry()
//	err := registry.Register("greet", "Greet user",
//		json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}}}`),
//		func(ctx context.Context, arguments json.RawMessage) (string, error) {
//			var input struct {
//				Name string `json:"name"`
//			}
//			if err := json.Unmarshal(arguments, &input); err != nil {
//				return "", err
//			}
//			return fmt.Sprintf("Hello, %s!", input.Name), nil
//		})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	baseServer, err := mcp.NewBaseServer(registry, mcp.UseServerInfo("greeter", "0.1.0"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	server := mcp.NewStdIOServer(baseServer, os.Stdin, os.Stdout)
//	if err := server.Run(context.Background()); err != nil {
//		log.Fatal(err)
//	}
package mcp
