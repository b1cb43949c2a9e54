package validator

import (
	"bufio"
	"strings"
	"time"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// parseTestOutput reads the sandboxed test binary's stdout, one result
// per line, in the form:
//
//	PASS <test_name>
//	FAIL <test_name>: <detail>
//	ERROR <test_name>: <detail>
//
// Any line not matching this shape is ignored rather than treated as a
// parse failure — a module's test harness may emit diagnostic chatter
// alongside its result lines.
func parseTestOutput(stdout string, wallTime time.Duration) contracts.RuntimeResults {
	results := contracts.RuntimeResults{Duration: wallTime}
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "PASS "):
			results.TestsExecuted++
			results.Passed++
		case strings.HasPrefix(line, "FAIL "):
			results.TestsExecuted++
			results.Failed++
		case strings.HasPrefix(line, "ERROR "):
			results.TestsExecuted++
			results.Errored++
		}
	}
	return results
}
