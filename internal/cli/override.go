package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"lipid-site-lab/internal/correspondence"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/orchestrator"
)

// FileOverride replaces the automatic correspondence with the CSV at path.
func FileOverride(path string) orchestrator.OverrideFunc {
	return func(context.Context, *domain.CorrespondenceEntry) (*domain.CorrespondenceEntry, error) {
		return readEntry(path)
	}
}

// InteractiveOverride prints the suggested correspondence to out and reads
// one answer from in: "y" or an empty line accepts it, anything else is
// taken as the path of a replacement CSV.
func InteractiveOverride(in io.Reader, out io.Writer) orchestrator.OverrideFunc {
	return func(ctx context.Context, auto *domain.CorrespondenceEntry) (*domain.CorrespondenceEntry, error) {
		fmt.Fprintln(out, "Suggested site correspondence:")
		if err := correspondence.WriteCSV(out, auto); err != nil {
			return nil, err
		}
		for _, w := range auto.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w.String())
		}
		fmt.Fprint(out, "Accept [y] or enter the path of a correspondence CSV: ")

		lines := make(chan string, 1)
		errs := make(chan error, 1)
		go func() {
			line, err := bufio.NewReader(in).ReadString('\n')
			if err != nil && (err != io.EOF || line == "") {
				errs <- err
				return
			}
			lines <- line
		}()

		var answer string
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-errs:
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read answer: %w", err)
		case answer = <-lines:
		}

		answer = strings.TrimSpace(answer)
		if answer == "" || strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes") {
			return nil, nil
		}
		return readEntry(answer)
	}
}

func readEntry(path string) (*domain.CorrespondenceEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCorrespondence, err)
	}
	defer f.Close()
	return correspondence.ReadCSV(f)
}
