package main

import (
	"context"

	"auportal-backend/cmd/auportal-cli/commands"
	"auportal-backend/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	commands.ExecuteContext(context.Background())
}
