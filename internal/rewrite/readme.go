package rewrite

// ReadmeTemplate is the fixed top-level description document written into
// the staging tree. It is a full substitution, not a transformation of the
// upstream README.
const ReadmeTemplate = `# React JSX Starter Kit

Plain JavaScript/JSX edition of the React starter kit.

This repository is generated automatically from the TypeScript upstream:
sources are compiled with the TypeScript compiler in JSX-preserving mode,
type annotations are stripped, and files containing markup are renamed to
the .jsx extension. Do not edit generated files here; contribute to the
upstream TypeScript project instead.

## Getting started

` + "```bash" + `
npm install
npm run dev
` + "```" + `

## Layout

- ` + "`app/`" + ` - application sources (.js/.jsx)
- ` + "`vite.config.js`" + ` - bundler configuration
- ` + "`index.html`" + ` - view template
`
