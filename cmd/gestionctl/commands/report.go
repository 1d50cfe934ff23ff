package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gestion/internal/reports"
	"gestion/internal/services"
)

func reportCmd(e *env) *cobra.Command {
	var (
		req    services.ReportRequest
		outArg string
	)
	cmd := &cobra.Command{
		Use:       "report <tipo>",
		Short:     "Render a report to a file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: reports.Tipos,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Tipo = args[0]
			svc, err := e.services()
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			r, err := svc.Reports.Generate(cmd.Context(), &buf, req)
			if err != nil {
				return err
			}
			path := outArg
			if path == "" {
				path = reports.FileName(r, req.Formato)
			} else if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, reports.FileName(r, req.Formato))
			}
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(out(cmd), "wrote %s (%d bytes)\n", path, buf.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Formato, "formato", reports.FormatPDF, "pdf or xlsx")
	cmd.Flags().StringVar(&req.Desde, "desde", "", "first day YYYY-MM-DD")
	cmd.Flags().StringVar(&req.Hasta, "hasta", "", "last day YYYY-MM-DD")
	cmd.Flags().StringVar(&req.Fecha, "fecha", "", "day of the daily report YYYY-MM-DD")
	cmd.Flags().StringVarP(&outArg, "out", "o", "", "output file or directory")
	return cmd
}
