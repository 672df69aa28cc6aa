// pre-receive is the push-admission hook linked into every hosted
// repository. Git runs it with the repository as working directory and the
// pushed ref update on stdin; a non-zero exit rejects the push.
package main

import (
	"os"

	"github.com/mikecalendo/gh-serv/pkg/admission"
)

func main() {
	os.Exit(admission.Run(os.Stdin, os.Stdout, "."))
}
