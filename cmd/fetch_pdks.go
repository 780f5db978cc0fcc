package cmd

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"

	"github.com/ThomasPluck/Hdl21/pkg/console"
)

type pdkSpec struct {
	URL      string
	Dest     string
	Sha256   string
	Strip    int
	MarkExec []string `yaml:"markExec,omitempty"`
}

type pdkConfig struct {
	Vars map[string]string
	PDKs map[string]pdkSpec `yaml:"pdks"`
}

var fetchPdksCmd = &cobra.Command{
	Use:   "fetch-pdks",
	Short: "Downloads and unpacks prebuilt PDK archives",
	Long: `Downloads and unpacks the PDK archives listed in PDKS.yml at the root of this
checkout. Archives that are already unpacked and unchanged are skipped, a stamp file next
to PDKS.yml remembers what's there.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		console.PrintTask("Loading config")
		root, err := findRepoRoot()
		if err != nil {
			return err
		}

		cfg, cfgData, stamps, err := getPdkConfig(root)
		if err != nil {
			return err
		}

		console.PrintTask("Downloading PDK archives")
		err = downloadAndExtract(cmd, cfg, cfgData, stamps, root)
		stampPath := filepath.Join(root, "PDKS.stamps")
		stampData, jErr := json.Marshal(stamps)
		if jErr != nil {
			console.PrintError(jErr.Error())
		}

		jErr = os.WriteFile(stampPath, stampData, os.FileMode(0660))
		if jErr != nil {
			console.PrintError(jErr.Error())
		}

		console.PrintTask("Done")

		return err
	},
}

func init() {
	rootCmd.AddCommand(fetchPdksCmd)
	fetchPdksCmd.Flags().BoolP("update", "u", false, "Update checksums")
}

func getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		// progress bars leave a mess on CI logs
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

func getPdkConfig(projectRoot string) (pdkConfig, string, map[string]string, error) {
	var cfg pdkConfig
	cfgPath := filepath.Join(projectRoot, "PDKS.yml")
	cfgData, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfg, "", nil, eris.Wrapf(err, "Could not open file %s.", cfgPath)
	}

	err = yaml.Unmarshal(cfgData, &cfg)
	if err != nil {
		return cfg, "", nil, eris.Wrapf(err, "Failed to parse %s.", cfgPath)
	}

	stamps := map[string]string{}
	stampPath := filepath.Join(projectRoot, "PDKS.stamps")
	stampData, err := os.ReadFile(stampPath)
	if err != nil {
		if !eris.Is(err, os.ErrNotExist) {
			return cfg, "", nil, eris.Wrapf(err, "Failed to read stamps file %s.", stampPath)
		}
	} else {
		err = json.Unmarshal(stampData, &stamps)
		if err != nil {
			return cfg, "", nil, eris.Wrapf(err, "Failed to parse JSON file %s.", stampPath)
		}
	}

	return cfg, string(cfgData), stamps, nil
}

var varMatcher = regexp.MustCompile(`\{([A-Z0-9_]+)\}`)

func expandVars(meta *pdkSpec, vars map[string]string) {
	meta.URL = varMatcher.ReplaceAllStringFunc(meta.URL, func(varName string) string {
		value, ok := vars[varName[1:len(varName)-1]]
		if ok {
			return value
		}

		return ""
	})
}

func downloadAndExtract(cmd *cobra.Command, cfg pdkConfig, cfgData string, stamps map[string]string, projectRoot string) error {
	client := &http.Client{
		Timeout: time.Minute * 30,
	}
	buf := make([]byte, 4096)

	update, err := cmd.Flags().GetBool("update")
	if err != nil {
		return err
	}

	changes := map[string]string{}
	for name, meta := range cfg.PDKs {
		expandVars(&meta, cfg.Vars)

		destPath := filepath.Join(projectRoot, meta.Dest)
		destInfo, err := os.Stat(destPath)
		destExists := err == nil

		stampToken := meta.URL + "#" + meta.Sha256
		stamp, ok := stamps[name]
		if ok && stampToken == stamp && destExists {
			continue
		}

		console.PrintSubtask(name + ":  " + meta.URL)
		if meta.Sha256 == "" && !update {
			return eris.Errorf("PDK archive %s doesn't have a checksum", name)
		}

		arHandle, err := os.Create("pdks_dl.tmp")
		if err != nil {
			return eris.Wrap(err, "Failed to create pdks_dl.tmp")
		}
		defer func() {
			arHandle.Close()
			os.Remove("pdks_dl.tmp")
		}()

		resp, err := client.Get(meta.URL)
		if err != nil {
			return eris.Wrapf(err, "Failed to start download for %s", meta.URL)
		}
		defer resp.Body.Close()

		hash := sha256.New()
		bar := getProgressBar(resp.ContentLength, "     download")
		for {
			n, err := resp.Body.Read(buf)
			if err != nil && n < 1 {
				if err == io.EOF {
					break
				}
				return eris.Wrapf(err, "Failed during download of %s", meta.URL)
			}

			_, err = hash.Write(buf[:n])
			if err != nil {
				return eris.Wrapf(err, "Failed to calculate checksum for %s", meta.URL)
			}

			_, err = arHandle.Write(buf[:n])
			if err != nil {
				return eris.Wrap(err, "Failed to write download to file pdks_dl.tmp")
			}

			bar.Write(buf[:n])
		}
		bar.Finish()
		resp.Body.Close()

		digest := hex.EncodeToString(hash.Sum(nil))
		if digest != meta.Sha256 {
			if update {
				fmt.Println("      Updating checksum")
				changes[name] = digest
			} else {
				return eris.Errorf("Checksum check failed for %s", name)
			}
		}

		if destExists {
			console.PrintSubtask(fmt.Sprintf("Remove %s", destPath))
			if destInfo.IsDir() {
				err = os.RemoveAll(destPath)
			} else {
				err = os.Remove(destPath)
			}
			if err != nil {
				return err
			}
		}

		extractor, err := getExtractor(meta.URL)
		if err != nil {
			return err
		}

		arHandle.Seek(0, io.SeekStart)
		bar = getProgressBar(resp.ContentLength, "      extract")
		err = extractor(arHandle, bar, projectRoot, meta)
		if err != nil {
			return err
		}

		if runtime.GOOS != "windows" {
			// .zip files don't carry permissions so binaries from .zip archives have to be fixed up
			for _, binPath := range meta.MarkExec {
				binPath = filepath.Join(projectRoot, meta.Dest, binPath)
				fi, err := os.Stat(binPath)
				if err != nil {
					return eris.Wrapf(err, "Failed to read permissions for %s", binPath)
				}

				err = os.Chmod(binPath, fi.Mode()|0700)
				if err != nil {
					return eris.Wrapf(err, "Failed to mark %s as executable", binPath)
				}
			}
		}

		stamps[name] = stampToken
	}

	if update {
		console.PrintTask("Updating PDKS.yml")
		generated := cfgData
		for name, newChecksum := range changes {
			pos := strings.Index(generated, name+":\n")
			if pos == -1 {
				return eris.Errorf("Failed to find the section for %s!", name)
			}

			subPos := strings.Index(generated[pos:], "sha256: "+cfg.PDKs[name].Sha256)
			if subPos == -1 {
				if cfg.PDKs[name].Sha256 == "" {
					endPos := strings.Index(generated[pos:], "\n\n")
					if endPos < subPos {
						fmt.Printf("     Couldn't find checksum section for %s.\n", name)
					} else {
						start := pos + len(name) + 2
						generated = generated[:start] + "    sha256: " + newChecksum + "\n" + generated[start:]
					}
				} else {
					fmt.Printf("     Couldn't find checksum section for %s.\n", name)
				}
			} else {
				start := pos + subPos + 8
				end := start + len(cfg.PDKs[name].Sha256)
				generated = generated[:start] + newChecksum + generated[end:]
			}
		}

		err := os.WriteFile(filepath.Join(projectRoot, "PDKS.yml"), []byte(generated), os.FileMode(0660))
		if err != nil {
			return eris.Wrap(err, "Failed to write the updated PDKS.yml")
		}
	}

	return nil
}

type archiveExtractor func(*os.File, *progressbar.ProgressBar, string, pdkSpec) error

func openExtractorDest(destPath string, item string, spec pdkSpec) (*os.File, string, error) {
	// normalize the path and strip spec.Strip elements from the beginning
	pathParts := strings.Split(filepath.Clean(item), string(filepath.Separator))
	if len(pathParts) <= spec.Strip {
		return nil, "/", nil
	}
	dest := filepath.Join(destPath, strings.Join(pathParts[spec.Strip:], string(filepath.Separator)))

	if dest == destPath {
		return nil, "/", nil
	}

	destParent := filepath.Dir(dest)
	err := os.MkdirAll(destParent, os.FileMode(0770))
	if err != nil {
		return nil, "", eris.Wrapf(err, "Failed to create directory %s", destParent)
	}

	destHandle, err := os.Create(dest)
	if err != nil {
		return nil, "", eris.Wrapf(err, "Failed to create file %s", dest)
	}

	return destHandle, dest, nil
}

func getExtractor(url string) (archiveExtractor, error) {
	if strings.HasSuffix(url, ".zip") {
		return func(f *os.File, bar *progressbar.ProgressBar, projectRoot string, spec pdkSpec) error {
			stat, err := f.Stat()
			if err != nil {
				return err
			}

			archive, err := zip.NewReader(f, stat.Size())
			if err != nil {
				return err
			}

			buf := make([]byte, 4096)
			destPath := filepath.Join(projectRoot, spec.Dest)
			for _, item := range archive.File {
				if strings.HasSuffix(item.Name, "/") {
					continue
				}
				destHandle, dest, err := openExtractorDest(destPath, item.Name, spec)
				if err != nil {
					return err
				}

				if destHandle == nil {
					continue
				}
				defer destHandle.Close()

				itemHandle, err := item.Open()
				if err != nil {
					return eris.Wrap(err, "Failed to open archive entry")
				}
				defer itemHandle.Close()

				for {
					n, err := itemHandle.Read(buf)
					if err != nil && n < 1 {
						if err == io.EOF {
							break
						}
						return eris.Wrapf(err, "Failed to read archive entry %s", item.Name)
					}

					_, err = destHandle.Write(buf[:n])
					if err != nil {
						return eris.Wrapf(err, "Failed to write extracted file %s", dest)
					}

					pos, err := f.Seek(0, io.SeekCurrent)
					if err == nil {
						bar.Set64(pos)
					}
				}

				itemHandle.Close()
				destHandle.Close()
			}

			return nil
		}, nil
	}

	if strings.HasSuffix(url, ".tar.gz") {
		return func(f *os.File, bar *progressbar.ProgressBar, projectRoot string, spec pdkSpec) error {
			reader, err := gzip.NewReader(f)
			if err != nil {
				return err
			}
			defer reader.Close()

			return extractTar(reader, f, bar, projectRoot, spec)
		}, nil
	}

	if strings.HasSuffix(url, ".tar.bz2") {
		return func(f *os.File, bar *progressbar.ProgressBar, projectRoot string, spec pdkSpec) error {
			reader := bzip2.NewReader(f)

			return extractTar(reader, f, bar, projectRoot, spec)
		}, nil
	}

	if strings.HasSuffix(url, ".tar.xz") {
		return func(f *os.File, bar *progressbar.ProgressBar, projectRoot string, spec pdkSpec) error {
			reader, err := xz.NewReader(f)
			if err != nil {
				return err
			}

			return extractTar(reader, f, bar, projectRoot, spec)
		}, nil
	}

	return nil, eris.New("Archive format not supported")
}

func extractTar(r io.Reader, f *os.File, bar *progressbar.ProgressBar, projectRoot string, spec pdkSpec) error {
	buf := make([]byte, 4096)
	archive := tar.NewReader(r)
	destPath := filepath.Join(projectRoot, spec.Dest)

	for {
		item, err := archive.Next()
		if err != nil {
			if err == io.EOF {
				break
			}

			return eris.Wrap(err, "Failed to read archive entry")
		}

		fi := item.FileInfo()
		if fi.IsDir() {
			continue
		}

		destHandle, dest, err := openExtractorDest(destPath, item.Name, spec)
		if err != nil {
			return err
		}

		if destHandle == nil {
			continue
		}
		defer destHandle.Close()

		if item.Typeflag == tar.TypeSymlink {
			destHandle.Close()
			err := os.Remove(dest)
			if err != nil {
				return eris.Wrapf(err, "Failed to remove placeholder file %s", dest)
			}

			err = os.Symlink(item.Linkname, dest)
			if err != nil {
				return eris.Wrapf(err, "Failed to create symlink %s pointing to %s", dest, item.Linkname)
			}
			continue
		}

		os.Chmod(dest, fi.Mode())

		for {
			n, err := archive.Read(buf)
			if err != nil && n < 1 {
				if err == io.EOF {
					break
				}
				return eris.Wrapf(err, "Failed to read archive entry %s", item.Name)
			}

			_, err = destHandle.Write(buf[:n])
			if err != nil {
				return eris.Wrapf(err, "Failed to write extracted file %s", dest)
			}

			pos, err := f.Seek(0, io.SeekCurrent)
			if err == nil {
				bar.Set64(pos)
			}
		}

		destHandle.Close()
	}

	return nil
}
