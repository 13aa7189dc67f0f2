package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kaizen/internal/autosave"
	"kaizen/internal/kaizen"
	"kaizen/internal/render"
	"kaizen/internal/tui"
	"kaizen/internal/vsm"
)

func (a *app) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <module-id>",
		Short: "Edit a value stream map in the terminal",
		Long: `Opens the value stream map of a vsm module full screen. Changes are
saved automatically a moment after you stop editing, and on exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, m, err := a.userAndModule(ctx, args[0])
			if err != nil {
				return err
			}
			doc, err := a.diagram(ctx, m, true)
			if err != nil {
				return err
			}

			exportDir := a.cfg.Editor.ExportDir
			if exportDir == "" {
				exportDir = "."
			}
			model := tui.New(doc, a.saveDiagram(m.ID),
				tui.WithLogger(a.logger),
				tui.WithTitle(m.Title),
				tui.WithExportDir(exportDir),
				tui.WithGrid(a.cfg.Editor.GridSize),
				tui.WithFrameInterval(a.cfg.FrameInterval()),
				tui.WithAutosave(autosave.WithWindow(a.cfg.AutosaveWindow())),
			)
			a.logger.Info("editing diagram", zap.String("module", m.ID))
			return tui.Run(model)
		},
	}
}

// saveDiagram is the autosave write for one module.
func (a *app) saveDiagram(moduleID string) autosave.WriteFunc[vsm.Diagram] {
	return func(ctx context.Context, d vsm.Diagram) error {
		data, err := vsm.Encode(d)
		if err != nil {
			return err
		}
		return a.store.SaveContent(ctx, moduleID, data)
	}
}

// diagram decodes the module's map. A module that was never edited gets an
// empty map, or the worked example when the config asks for it; seed stores
// that first version.
func (a *app) diagram(ctx context.Context, m kaizen.Module, seed bool) (vsm.Diagram, error) {
	if m.Type != kaizen.ModuleVSM {
		return vsm.Diagram{}, fmt.Errorf("module %s is a %s module, not a value stream map", m.ID, m.Type)
	}
	if len(m.Content) > 0 && string(m.Content) != "null" {
		return vsm.Decode(m.Content)
	}
	doc := vsm.NewEmpty()
	if a.cfg.Editor.SeedExample {
		doc = vsm.NewExample()
	}
	if m.Title != "" {
		doc.Settings.Title = m.Title
	}
	if seed {
		if err := a.saveDiagram(m.ID)(ctx, doc); err != nil {
			return vsm.Diagram{}, err
		}
	}
	return doc, nil
}

func (a *app) vsmCmd() *cobra.Command {
	var toClipboard bool

	cmd := &cobra.Command{
		Use:   "vsm",
		Short: "Back up, restore and export value stream maps",
	}

	exportCmd := &cobra.Command{
		Use:   "export <module-id> [file]",
		Short: "Write the map as JSON to a file, stdout or the clipboard",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := a.userAndModule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc, err := a.diagram(cmd.Context(), m, false)
			if err != nil {
				return err
			}
			data, err := vsm.Encode(doc)
			if err != nil {
				return err
			}
			switch {
			case toClipboard:
				if err := clipboard.WriteAll(string(data)); err != nil {
					return fmt.Errorf("failed to copy to clipboard: %w", err)
				}
				fmt.Fprintln(out(cmd), "Map copied to clipboard")
				return nil
			case len(args) == 2:
				if err := os.WriteFile(a.cfg.ExportPath(args[1]), data, 0644); err != nil {
					return fmt.Errorf("failed to write backup: %w", err)
				}
				fmt.Fprintf(out(cmd), "Wrote %s\n", a.cfg.ExportPath(args[1]))
				return nil
			}
			_, err = out(cmd).Write(append(data, '\n'))
			return err
		},
	}
	exportCmd.Flags().BoolVar(&toClipboard, "clipboard", false, "copy to the system clipboard")

	importCmd := &cobra.Command{
		Use:   "import <module-id> [file]",
		Short: "Replace the map with JSON from a file, stdin or the clipboard",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := a.userAndModule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if m.Type != kaizen.ModuleVSM {
				return fmt.Errorf("module %s is a %s module, not a value stream map", m.ID, m.Type)
			}
			var data []byte
			switch {
			case toClipboard:
				text, err := clipboard.ReadAll()
				if err != nil {
					return fmt.Errorf("failed to read clipboard: %w", err)
				}
				data = []byte(strings.TrimSpace(text))
			case len(args) == 2:
				if data, err = os.ReadFile(args[1]); err != nil {
					return fmt.Errorf("failed to read backup: %w", err)
				}
			default:
				if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			doc, err := vsm.Decode(data)
			if err != nil {
				return err
			}
			state := vsm.NewState(vsm.NewEmpty())
			state.Replace(doc)
			doc = state.Diagram()
			if err := a.saveDiagram(m.ID)(cmd.Context(), doc); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Imported %d elements and %d connections\n", len(doc.Elements), len(doc.Connections))
			return nil
		},
	}
	importCmd.Flags().BoolVar(&toClipboard, "clipboard", false, "read from the system clipboard")

	cmd.AddCommand(
		exportCmd,
		importCmd,
		a.imageCmd("png", "Render the map to a PNG image", render.PNG),
		a.imageCmd("svg", "Render the map to an SVG drawing", render.SVG),
	)
	return cmd
}

func (a *app) imageCmd(format, short string, draw func(io.Writer, vsm.Diagram) error) *cobra.Command {
	return &cobra.Command{
		Use:   format + " <module-id> <file>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := a.userAndModule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc, err := a.diagram(cmd.Context(), m, false)
			if err != nil {
				return err
			}
			path := a.cfg.ExportPath(args[1])
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			err = draw(f, doc)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(path)
				return fmt.Errorf("failed to export %s: %w", format, err)
			}
			fmt.Fprintf(out(cmd), "Wrote %s\n", path)
			return nil
		},
	}
}
